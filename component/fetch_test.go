package component_test

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/delaneyj/strux/changes"
	"github.com/delaneyj/strux/component"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fetchRuntime(t *testing.T, handler http.HandlerFunc) (*component.Runtime, *[]error) {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	var errs []error
	rt := component.NewRuntime(
		component.WithFetcher(&component.HTTPFetcher{BaseURL: srv.URL}),
		component.WithOnError(func(inst *component.Instance, err error) {
			errs = append(errs, err)
		}),
	)
	return rt, &errs
}

func waitAndDrain(t *testing.T, l *component.Loop, n int) {
	t.Helper()
	require.Eventually(t, func() bool { return l.Pending() >= n }, time.Second, 5*time.Millisecond)
	assert.Equal(t, n, l.Drain())
}

func TestFetchDispatchesResult(t *testing.T) {
	var gotPath string
	rt, errs := fetchRuntime(t, func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		fmt.Fprint(w, `{"name":"ada","id":7}`)
	})
	user := rt.DefineClass("User")
	user.Fetches("/users/:id", nil).
		When(component.DidMount, func(state changes.Values) changes.Values {
			return changes.Values{"id": state["id"]}
		}).
		ThenDispatches("USER_LOADED").
		As(func(data any, state changes.Values) changes.Values {
			return changes.Values{"user": data, "for": state["id"]}
		})
	got := messages(rt.Store())

	require.NoError(t, user.New(nil, changes.Values{"id": 7}).Mount())
	assert.Empty(t, *got)

	waitAndDrain(t, rt.Loop(), 1)
	assert.Empty(t, *errs)
	assert.Equal(t, "/users/7", gotPath)
	require.Len(t, *got, 1)
	assert.Equal(t, "USER_LOADED", (*got)[0].Type)
	assert.Equal(t, map[string]any{"name": "ada", "id": float64(7)}, (*got)[0].Payload["user"])
	assert.Equal(t, 7, (*got)[0].Payload["for"])
}

func TestFetchPlainTextBody(t *testing.T) {
	rt, errs := fetchRuntime(t, func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, "not json")
	})
	c := rt.DefineClass("Text")
	var data any
	c.Fetches("/text", &component.FetchOptions{Method: http.MethodPost, Body: "x"}).
		When(component.DidMount, nil).
		ThenDispatches("TEXT").
		As(func(d any, state changes.Values) changes.Values {
			data = d
			return nil
		})
	got := messages(rt.Store())

	require.NoError(t, c.New(nil, nil).Mount())
	waitAndDrain(t, rt.Loop(), 1)
	assert.Empty(t, *errs)
	assert.Equal(t, "not json", data)
	require.Len(t, *got, 1)
	assert.Equal(t, changes.Values{}, (*got)[0].Payload)
}

func TestFetchNotOK(t *testing.T) {
	rt, errs := fetchRuntime(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "nope", http.StatusNotFound)
	})
	c := rt.DefineClass("Missing")
	c.Fetches("/missing", nil).When(component.DidMount, nil).ThenDispatches("NEVER").As(nil)
	got := messages(rt.Store())

	require.NoError(t, c.New(nil, nil).Mount())
	waitAndDrain(t, rt.Loop(), 1)
	assert.Empty(t, *got)
	require.Len(t, *errs, 1)
	var fetchErr *component.FetchError
	require.True(t, errors.As((*errs)[0], &fetchErr))
	assert.Equal(t, http.StatusNotFound, fetchErr.Status)
	assert.Equal(t, "Not Found", fetchErr.StatusText)
}

type failingFetcher struct{ err error }

func (f failingFetcher) Fetch(context.Context, string, component.FetchOptions) (*component.Response, error) {
	return nil, f.err
}

func TestFetchTransportError(t *testing.T) {
	boom := errors.New("connection refused")
	var errs []error
	rt := component.NewRuntime(
		component.WithFetcher(failingFetcher{boom}),
		component.WithOnError(func(inst *component.Instance, err error) {
			errs = append(errs, err)
		}),
	)
	c := rt.DefineClass("Offline")
	c.Fetches("/x", nil).When(component.DidMount, nil).ThenDispatches("NEVER").As(nil)

	require.NoError(t, c.New(nil, nil).Mount())
	waitAndDrain(t, rt.Loop(), 1)
	require.Len(t, errs, 1)
	assert.ErrorIs(t, errs[0], boom)
}

func TestFetchOnCustomTrigger(t *testing.T) {
	rt, _ := fetchRuntime(t, func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `[1,2,3]`)
	})
	const refresh component.Hook = "refresh"
	c := rt.DefineClass("List")
	c.Fetches("/items", nil).When(refresh, nil).ThenDispatches("ITEMS").As(func(data any, state changes.Values) changes.Values {
		return changes.Values{"items": data}
	})
	assert.True(t, rt.IsTrigger(refresh))
	got := messages(rt.Store())

	inst := c.New(nil, nil)
	require.NoError(t, inst.Mount())
	assert.Equal(t, 0, rt.Loop().Pending())

	_, err := inst.Invoke(refresh)
	require.NoError(t, err)
	waitAndDrain(t, rt.Loop(), 1)
	require.Len(t, *got, 1)
	assert.Equal(t, []any{float64(1), float64(2), float64(3)}, (*got)[0].Payload["items"])
}

func TestReplaceURLVars(t *testing.T) {
	for _, tc := range []struct {
		url  string
		vars changes.Values
		want string
	}{
		{"/users/:id", changes.Values{"id": 7}, "/users/7"},
		{"/users/:name", changes.Values{"name": "ada"}, "/users/ada"},
		{"/a/:id/:idx", changes.Values{"id": 1, "idx": 2}, "/a/1/2"},
		{"/flag/:on", changes.Values{"on": true}, "/flag/true"},
		{"/same/:x/:x", changes.Values{"x": "y"}, "/same/y/y"},
		{"/untouched/:id", changes.Values{}, "/untouched/:id"},
		{"/untouched/:id", nil, "/untouched/:id"},
	} {
		t.Run(tc.url, func(t *testing.T) {
			assert.Equal(t, tc.want, component.ReplaceURLVars(tc.url, tc.vars))
		})
	}
}

func TestHTTPFetcherOptions(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPut, r.Method)
		assert.Equal(t, "yes", r.Header.Get("X-Test"))
		w.WriteHeader(http.StatusAccepted)
		fmt.Fprint(w, "ok")
	}))
	defer srv.Close()

	f := &component.HTTPFetcher{}
	res, err := f.Fetch(context.Background(), srv.URL+"/put", component.FetchOptions{
		Method: http.MethodPut,
		Header: http.Header{"X-Test": {"yes"}},
		Body:   "payload",
	})
	require.NoError(t, err)
	assert.True(t, res.OK)
	assert.Equal(t, http.StatusAccepted, res.Status)
	assert.Equal(t, "ok", res.Body)
}
