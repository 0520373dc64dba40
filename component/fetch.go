package component

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"slices"
	"strings"

	"github.com/delaneyj/strux/changes"
	"github.com/delaneyj/strux/store"
	"github.com/golang/glog"
)

type FetchOptions struct {
	Method string
	Header http.Header
	Body   string
}

type Response struct {
	OK         bool
	Status     int
	StatusText string
	Body       string
}

// Fetcher performs the request behind a fetch description. Fetch is called
// off the loop goroutine.
type Fetcher interface {
	Fetch(ctx context.Context, url string, opts FetchOptions) (*Response, error)
}

// HTTPFetcher fetches over net/http. Relative URLs are resolved against
// BaseURL.
type HTTPFetcher struct {
	Client  *http.Client
	BaseURL string
}

func (f *HTTPFetcher) Fetch(ctx context.Context, rawURL string, opts FetchOptions) (*Response, error) {
	target, err := f.resolve(rawURL)
	if err != nil {
		return nil, err
	}
	method := opts.Method
	if method == "" {
		method = http.MethodGet
	}
	var body io.Reader
	if opts.Body != "" {
		body = strings.NewReader(opts.Body)
	}
	req, err := http.NewRequestWithContext(ctx, method, target, body)
	if err != nil {
		return nil, fmt.Errorf("building request for %s: %w", target, err)
	}
	for k, vs := range opts.Header {
		for _, v := range vs {
			req.Header.Add(k, v)
		}
	}

	client := f.Client
	if client == nil {
		client = http.DefaultClient
	}
	res, err := client.Do(req)
	if err != nil {
		return nil, err
	}
	defer res.Body.Close()

	data, err := io.ReadAll(res.Body)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", target, err)
	}
	return &Response{
		OK:         res.StatusCode >= 200 && res.StatusCode < 300,
		Status:     res.StatusCode,
		StatusText: http.StatusText(res.StatusCode),
		Body:       string(data),
	}, nil
}

func (f *HTTPFetcher) resolve(rawURL string) (string, error) {
	if f.BaseURL == "" {
		return rawURL, nil
	}
	base, err := url.Parse(f.BaseURL)
	if err != nil {
		return "", fmt.Errorf("parsing base url: %w", err)
	}
	ref, err := url.Parse(rawURL)
	if err != nil {
		return "", fmt.Errorf("parsing %s: %w", rawURL, err)
	}
	return base.ResolveReference(ref).String(), nil
}

// FetchError is a response that came back but was not ok.
type FetchError struct {
	URL        string
	Status     int
	StatusText string
}

func (e *FetchError) Error() string {
	return fmt.Sprintf("fetching %s: %d %s", e.URL, e.Status, e.StatusText)
}

// TranslateFunc picks the values substituted into a fetch URL.
type TranslateFunc func(state changes.Values) changes.Values

// DataFunc turns fetched data into an action payload. data is the decoded
// JSON body, or the raw body when it is not JSON.
type DataFunc func(data any, state changes.Values) changes.Values

type fetchRule struct {
	url        string
	opts       FetchOptions
	translate  TranslateFunc
	actionType string
	transform  DataFunc
}

type FetchBuilder struct {
	class *Class
	url   string
	opts  FetchOptions
}

// When names the hook that triggers the fetch; translate may be nil.
func (b *FetchBuilder) When(hook Hook, translate TranslateFunc) *FetchDispatchBuilder {
	b.class.rt.AddTrigger(hook)
	return &FetchDispatchBuilder{
		class: b.class,
		hook:  hook,
		rule: fetchRule{
			url:       b.url,
			opts:      b.opts,
			translate: translate,
		},
	}
}

type FetchDispatchBuilder struct {
	class *Class
	hook  Hook
	rule  fetchRule
}

func (b *FetchDispatchBuilder) ThenDispatches(actionType string) *FetchDescription {
	rule := b.rule
	rule.actionType = actionType
	return &FetchDescription{class: b.class, hook: b.hook, rule: rule}
}

type FetchDescription struct {
	class *Class
	hook  Hook
	rule  fetchRule
}

func (d *FetchDescription) As(transform DataFunc) {
	rt := d.class.rt
	rule := d.rule
	rule.transform = transform
	byClass, ok := rt.fetches[d.hook]
	if !ok {
		byClass = map[changes.ClassID][]fetchRule{}
		rt.fetches[d.hook] = byClass
	}
	byClass[d.class.id] = append(byClass[d.class.id], rule)
}

// runFetches starts every fetch described for hook. Requests run on their own
// goroutines; results come back through the loop. Unmounting does not cancel
// them.
func (rt *Runtime) runFetches(hook Hook, inst *Instance) {
	for _, rule := range rt.fetches[hook][inst.class.id] {
		vars := changes.Values{}
		if rule.translate != nil {
			if v := rule.translate(inst.State()); v != nil {
				vars = v
			}
		}
		target := ReplaceURLVars(rule.url, vars)
		glog.V(1).Infof("strux: %s fetching %s", inst, target)

		go func(rule fetchRule, target string) {
			res, err := rt.fetcher.Fetch(rt.ctx, target, rule.opts)
			rt.loop.Post(func() {
				rt.resolveFetch(inst, rule, target, res, err)
			})
		}(rule, target)
	}
}

func (rt *Runtime) resolveFetch(inst *Instance, rule fetchRule, target string, res *Response, err error) {
	if err != nil {
		rt.fail(inst, fmt.Errorf("fetching %s: %w", target, err))
		return
	}
	if !res.OK {
		rt.fail(inst, &FetchError{URL: target, Status: res.Status, StatusText: res.StatusText})
		return
	}

	payload := changes.Values{}
	if rule.transform != nil {
		if p := rule.transform(parseBody(res.Body), inst.State()); p != nil {
			payload = p
		}
	}
	err = rt.store.Dispatch(store.Message{Type: rule.actionType, Payload: payload})
	rt.fail(inst, err)
}

func parseBody(body string) any {
	var data any
	if err := json.Unmarshal([]byte(body), &data); err != nil {
		return body
	}
	return data
}

// ReplaceURLVars substitutes every :key placeholder in rawURL with the
// matching value. Strings go in as they are; anything else is JSON encoded.
func ReplaceURLVars(rawURL string, vars changes.Values) string {
	out := rawURL
	// longest keys first so :idx is not eaten by :id
	keys := vars.Keys()
	slices.SortStableFunc(keys, func(a, b string) int { return len(b) - len(a) })
	for _, key := range keys {
		out = strings.ReplaceAll(out, ":"+key, urlValue(vars[key]))
	}
	return out
}

func urlValue(v any) string {
	if s, ok := v.(string); ok {
		return s
	}
	b, err := json.Marshal(v)
	if err != nil {
		return fmt.Sprint(v)
	}
	return string(b)
}
