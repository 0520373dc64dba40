package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/delaneyj/strux/changes"
	"github.com/delaneyj/strux/component"
	"github.com/delaneyj/strux/config"
	"github.com/delaneyj/strux/snapshot"
	"github.com/delaneyj/strux/socketpool"
	"github.com/delaneyj/strux/store"
	"github.com/dustin/go-humanize"
	"github.com/golang/glog"
)

type daemon struct {
	cfg     *config.Config
	classes *changes.ClassTable
	store   *store.Store
	loop    *component.Loop
	pool    *socketpool.Pool
	db      *snapshot.DB
	started time.Time
	actions int64
}

func newDaemon(cfg *config.Config) (*daemon, error) {
	d := &daemon{
		cfg:     cfg,
		classes: changes.NewClassTable(),
		store:   store.New(),
		loop:    component.NewLoop(),
		started: time.Now(),
	}

	if err := cfg.InstallReducers(d.store); err != nil {
		return nil, err
	}
	restored := false
	if cfg.Store.Snapshot != "" {
		db, err := snapshot.Open(cfg.Store.Snapshot)
		if err != nil {
			return nil, err
		}
		d.db = db
		saved, err := db.Load()
		if err != nil {
			db.Close()
			return nil, err
		}
		if len(saved.App) > 0 || len(saved.Classes) > 0 {
			if err := db.Restore(d.store, d.classes); err != nil {
				db.Close()
				return nil, err
			}
			restored = true
		}
	}
	if !restored && cfg.Store.InitialState != nil {
		if _, err := d.store.SetInitialState(changes.Values(cfg.Store.InitialState)); err != nil {
			return nil, fmt.Errorf("initial state: %w", err)
		}
	}

	d.pool = socketpool.New(d.store, d.loop,
		socketpool.WithClassNames(d.classes.Name),
		socketpool.WithBuffer(cfg.Broadcast.Buffer),
		socketpool.WithWriteTimeout(cfg.Broadcast.WriteTimeout),
	)
	d.pool.OnConnect(func(c *socketpool.Conn) {
		c.On(store.StateChangeType, socketpool.StateChanges(d.classes))
	})
	d.pool.Bind()
	d.store.Subscribe(func(store.Action) error {
		d.actions++
		return nil
	})
	return d, nil
}

func (d *daemon) run(ctx context.Context) error {
	mux := http.NewServeMux()
	mux.Handle(d.cfg.Server.Path, d.pool)
	mux.HandleFunc("/state", d.handleState)

	srv := &http.Server{Addr: d.cfg.Server.Addr(), Handler: mux}
	loopCtx, stopLoop := context.WithCancel(context.Background())
	loopDone := make(chan struct{})
	go func() {
		defer close(loopDone)
		d.loop.Run(loopCtx)
	}()

	serveErr := make(chan error, 1)
	go func() {
		glog.Infof("struxd: listening on %s%s", d.cfg.Server.Addr(), d.cfg.Server.Path)
		serveErr <- srv.ListenAndServe()
	}()

	var ticker <-chan time.Time
	if d.db != nil && d.cfg.Store.SnapshotEvery > 0 {
		t := time.NewTicker(d.cfg.Store.SnapshotEvery)
		defer t.Stop()
		ticker = t.C
	}

	var err error
wait:
	for {
		select {
		case <-ctx.Done():
			glog.Infof("struxd: shutting down")
			break wait
		case err = <-serveErr:
			break wait
		case <-ticker:
			d.loop.Post(func() {
				if err := d.save(); err != nil {
					glog.Errorf("struxd: saving snapshot: %v", err)
				}
			})
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	srv.Shutdown(shutdownCtx)
	d.pool.Close()
	stopLoop()
	<-loopDone

	// the loop is stopped so the store is ours from here on
	if d.db != nil {
		if saveErr := d.save(); saveErr != nil {
			glog.Errorf("struxd: saving snapshot: %v", saveErr)
		}
		d.db.Close()
	}
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}

// save must run on the loop, or after it stopped.
func (d *daemon) save() error {
	if err := d.db.Save(d.store.GetState(), d.classes.Name); err != nil {
		return err
	}
	size := "?"
	if fi, err := os.Stat(d.cfg.Store.Snapshot); err == nil {
		size = humanize.Bytes(uint64(fi.Size()))
	}
	glog.Infof("struxd: saved snapshot (%s), %s actions since %s, %d connections, %d classes",
		size,
		humanize.Comma(d.actions),
		humanize.Time(d.started),
		d.pool.Len(),
		d.classes.Len(),
	)
	return nil
}

func (d *daemon) handleState(w http.ResponseWriter, r *http.Request) {
	var body struct {
		App     changes.Values            `json:"app"`
		Classes map[string]changes.Values `json:"classes"`
	}
	err := d.loop.Do(r.Context(), func() error {
		state := d.store.GetState()
		body.App = state.App
		body.Classes = make(map[string]changes.Values, len(state.Components))
		for id, slot := range state.Components {
			body.Classes[d.classes.Name(id)] = slot
		}
		return nil
	})
	if err != nil {
		http.Error(w, err.Error(), http.StatusServiceUnavailable)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(body)
}
