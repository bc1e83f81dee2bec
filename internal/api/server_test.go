package api

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/carlfranklin/avnrepo/internal/query"
	"github.com/carlfranklin/avnrepo/internal/repo"
	"github.com/carlfranklin/avnrepo/pkg/errors"
	"github.com/carlfranklin/avnrepo/pkg/logger"
)

var itemSchema = query.MustSchemaOf[item]()

func testServer(t *testing.T, r repo.Repo[item], opts ...MountOption[item]) *Server {
	t.Helper()

	var cfg Config
	cfg.HTTP.Addr = "127.0.0.1:0"

	s := NewServer(cfg, logger.NewStub())
	Mount(s, "items", r, opts...)
	return s
}

func send[R any](t *testing.T, s *Server, method, path, body string) (int, R) {
	t.Helper()

	var payload io.Reader
	if body != "" {
		payload = strings.NewReader(body)
	}

	req := httptest.NewRequest(method, path, payload)
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.App().Test(req, -1)
	require.NoError(t, err)
	defer resp.Body.Close()

	var out R
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	return resp.StatusCode, out
}

func TestServer_getAll(t *testing.T) {
	ctrl := gomock.NewController(t)
	r := NewMockitemRepo(ctrl)
	r.EXPECT().GetAll(gomock.Any()).Return([]item{{Key: "a"}, {Key: "b"}}, nil)

	code, resp := send[ListResponse[item]](t, testServer(t, r), http.MethodGet, "/api/items", "")
	require.Equal(t, http.StatusOK, code)
	require.True(t, resp.Success)
	require.Empty(t, resp.ErrorMessages)
	require.Equal(t, []item{{Key: "a"}, {Key: "b"}}, resp.Data)
}

func TestServer_getByID(t *testing.T) {
	type mocks struct {
		found item
		err   error
	}

	type want struct {
		code    int
		success bool
	}

	type testcase struct {
		name string
		mock mocks
		want want
	}

	tests := [...]testcase{
		{
			name: "found",
			mock: mocks{found: item{Key: "a", Name: "alpha"}},
			want: want{code: http.StatusOK, success: true},
		},
		{
			name: "not found",
			mock: mocks{err: errors.WrapFail(repo.ErrNotFound, "get")},
			want: want{code: http.StatusNotFound},
		},
		{
			name: "store failure",
			mock: mocks{err: &repo.StoreAccessError{Store: "mongo", Op: "find", Err: errors.Error("mock")}},
			want: want{code: http.StatusBadGateway},
		},
		{
			name: "unexpected failure",
			mock: mocks{err: errors.Error("mock")},
			want: want{code: http.StatusInternalServerError},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctrl := gomock.NewController(t)
			r := NewMockitemRepo(ctrl)
			r.EXPECT().GetByID(gomock.Any(), "a").Return(tt.mock.found, tt.mock.err).Times(1)

			code, resp := send[EntityResponse[item]](t, testServer(t, r), http.MethodGet, "/api/items/a", "")
			require.Equal(t, tt.want.code, code)
			require.Equal(t, tt.want.success, resp.Success)

			if tt.want.success {
				require.NotNil(t, resp.Data)
				require.Equal(t, tt.mock.found, *resp.Data)
			} else {
				require.Nil(t, resp.Data)
				require.NotEmpty(t, resp.ErrorMessages)
			}
		})
	}
}

func TestServer_query(t *testing.T) {
	items := []item{
		{Key: "a", Name: "alpha", Rank: 3},
		{Key: "b", Name: "beta", Rank: 1},
		{Key: "c", Name: "gamma", Rank: 2},
	}

	evaluate := func(ctx context.Context, f query.Filter) (query.Result[item], error) {
		return query.Evaluate(ctx, itemSchema, items, f)
	}

	t.Run("filter and order", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		r := NewMockitemRepo(ctrl)
		r.EXPECT().Get(gomock.Any(), gomock.Any()).DoAndReturn(evaluate)

		body := `{"filterProperties":[{"name":"Rank","value":"1","operator":"GreaterThan"}],"orderByPropertyName":"Rank"}`
		code, resp := send[ListResponse[item]](t, testServer(t, r), http.MethodPost, "/api/items/query", body)
		require.Equal(t, http.StatusOK, code)
		require.True(t, resp.Success)
		require.Equal(t, []item{items[2], items[0]}, resp.Data)
	})

	t.Run("projection prunes columns", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		r := NewMockitemRepo(ctrl)
		r.EXPECT().Get(gomock.Any(), gomock.Any()).DoAndReturn(evaluate)

		body := `{"includePropertyNames":["Name"],"orderByPropertyName":"Name","orderByDescending":true}`
		code, resp := send[ListResponse[map[string]any]](t, testServer(t, r), http.MethodPost, "/api/items/query", body)
		require.Equal(t, http.StatusOK, code)
		require.Equal(t, []map[string]any{
			{"name": "gamma"},
			{"name": "beta"},
			{"name": "alpha"},
		}, resp.Data)
	})

	t.Run("no matches", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		r := NewMockitemRepo(ctrl)
		r.EXPECT().Get(gomock.Any(), gomock.Any()).DoAndReturn(evaluate)

		body := `{"filterProperties":[{"name":"Name","value":"zeta","operator":"Equals"}]}`
		code, resp := send[ListResponse[item]](t, testServer(t, r), http.MethodPost, "/api/items/query", body)
		require.Equal(t, http.StatusOK, code)
		require.True(t, resp.Success)
		require.NotNil(t, resp.Data)
		require.Empty(t, resp.Data)
	})

	invalid := []struct {
		name string
		body string
	}{
		{name: "unknown property", body: `{"filterProperties":[{"name":"Nope","value":"1","operator":"Equals"}]}`},
		{name: "unsupported operator", body: `{"filterProperties":[{"name":"Rank","value":"1","operator":"Contains"}]}`},
		{name: "bad operand", body: `{"filterProperties":[{"name":"Rank","value":"abc","operator":"Equals"}]}`},
		{name: "unknown order property", body: `{"orderByPropertyName":"Nope"}`},
	}
	for _, tt := range invalid {
		t.Run(tt.name, func(t *testing.T) {
			ctrl := gomock.NewController(t)
			r := NewMockitemRepo(ctrl)
			r.EXPECT().Get(gomock.Any(), gomock.Any()).DoAndReturn(evaluate)

			code, resp := send[ListResponse[item]](t, testServer(t, r), http.MethodPost, "/api/items/query", tt.body)
			require.Equal(t, http.StatusBadRequest, code)
			require.False(t, resp.Success)
			require.Len(t, resp.ErrorMessages, 1)
			require.Empty(t, resp.Data)
		})
	}

	t.Run("malformed filter", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		r := NewMockitemRepo(ctrl)

		code, resp := send[ListResponse[item]](t, testServer(t, r), http.MethodPost, "/api/items/query", `{"filterProperties":[{"operator":"Between"}]}`)
		require.Equal(t, http.StatusBadRequest, code)
		require.False(t, resp.Success)
	})
}

func TestServer_bodyNeedsJSON(t *testing.T) {
	ctrl := gomock.NewController(t)
	s := testServer(t, NewMockitemRepo(ctrl))

	req := httptest.NewRequest(http.MethodPost, "/api/items/query", strings.NewReader(`{}`))
	req.Header.Set("Content-Type", "text/plain")

	resp, err := s.App().Test(req, -1)
	require.NoError(t, err)
	defer resp.Body.Close()

	var out ListResponse[item]
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
	require.False(t, out.Success)
	require.NotEmpty(t, out.ErrorMessages)
}

func TestServer_insert(t *testing.T) {
	type entity struct {
		Name string `validate:"required"`
	}
	invalid := validator.New().Struct(entity{})
	require.Error(t, invalid)

	type mocks struct {
		hookErr   error
		insertErr error
	}

	type want struct {
		code     int
		inserted bool
	}

	type testcase struct {
		name string
		mock mocks
		want want
	}

	tests := [...]testcase{
		{
			name: "created",
			want: want{code: http.StatusCreated, inserted: true},
		},
		{
			name: "rejected by hook",
			mock: mocks{hookErr: invalid},
			want: want{code: http.StatusBadRequest},
		},
		{
			name: "duplicate",
			mock: mocks{insertErr: errors.WrapFail(repo.ErrConflict, "insert")},
			want: want{code: http.StatusConflict},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctrl := gomock.NewController(t)
			r := NewMockitemRepo(ctrl)

			hook := BeforeInsert(func(i item) (item, error) {
				i.Key = "generated"
				return i, tt.mock.hookErr
			})

			if tt.mock.hookErr == nil {
				r.EXPECT().
					Insert(gomock.Any(), item{Key: "generated", Name: "alpha"}).
					DoAndReturn(func(_ context.Context, i item) (item, error) {
						return i, tt.mock.insertErr
					}).
					Times(1)
			}

			code, resp := send[EntityResponse[item]](t, testServer(t, r, hook), http.MethodPost, "/api/items", `{"name":"alpha"}`)
			require.Equal(t, tt.want.code, code)
			require.Equal(t, tt.want.inserted, resp.Success)
			if tt.want.inserted {
				require.Equal(t, "generated", resp.Data.Key)
			}
		})
	}
}

func TestServer_update(t *testing.T) {
	ctrl := gomock.NewController(t)
	r := NewMockitemRepo(ctrl)
	r.EXPECT().Update(gomock.Any(), item{Key: "a", Rank: 7}).Return(item{Key: "a", Rank: 7}, nil)
	r.EXPECT().Update(gomock.Any(), item{Key: "x"}).Return(item{}, repo.ErrNotFound)

	s := testServer(t, r)

	code, resp := send[EntityResponse[item]](t, s, http.MethodPut, "/api/items", `{"key":"a","rank":7}`)
	require.Equal(t, http.StatusOK, code)
	require.Equal(t, 7, resp.Data.Rank)

	code, resp = send[EntityResponse[item]](t, s, http.MethodPut, "/api/items", `{"key":"x"}`)
	require.Equal(t, http.StatusNotFound, code)
	require.False(t, resp.Success)

	code, _ = send[EntityResponse[item]](t, s, http.MethodPut, "/api/items", `{"key":`)
	require.Equal(t, http.StatusBadRequest, code)
}

func TestServer_delete(t *testing.T) {
	ctrl := gomock.NewController(t)
	r := NewMockitemRepo(ctrl)
	r.EXPECT().Delete(gomock.Any(), "a").Return(true, nil)
	r.EXPECT().Delete(gomock.Any(), "b").Return(false, nil)
	r.EXPECT().DeleteAll(gomock.Any()).Return(nil)

	s := testServer(t, r)

	code, resp := send[EntityResponse[item]](t, s, http.MethodDelete, "/api/items/a", "")
	require.Equal(t, http.StatusOK, code)
	require.True(t, resp.Success)
	require.Nil(t, resp.Data)

	code, resp = send[EntityResponse[item]](t, s, http.MethodDelete, "/api/items/b", "")
	require.Equal(t, http.StatusNotFound, code)
	require.False(t, resp.Success)

	code, list := send[ListResponse[item]](t, s, http.MethodDelete, "/api/items", "")
	require.Equal(t, http.StatusOK, code)
	require.True(t, list.Success)
	require.Empty(t, list.Data)
}

func TestServer_shutdownClosesRepos(t *testing.T) {
	ctrl := gomock.NewController(t)
	r := NewMockitemRepo(ctrl)
	r.EXPECT().Close(gomock.Any()).Return(errors.Error("mock")).Times(1)

	s := testServer(t, r)

	err := s.Shutdown(context.Background())
	require.ErrorContains(t, err, "can't close repo: mock")
}
