// Package changes tracks per-class state transitions and decides which of them
// other classes care about.
//
// A StateTree folds each instance's old/new record pair into one slot per
// class and remembers the resulting Delta as the most recent change. A
// Registry maps observer classes to per-key Validators on observed classes;
// Evaluate filters a Change down to the new values an observer is interested
// in.
package changes
