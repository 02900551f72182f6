package nats

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/micro"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/flarexio/kdvector"
	"github.com/flarexio/kdvector/embedding/hash"
)

type fakeRequest struct {
	data    []byte
	headers micro.Headers

	resp      []byte
	errCode   string
	errDetail string
}

func (r *fakeRequest) Respond(data []byte, opts ...micro.RespondOpt) error {
	r.resp = data
	return nil
}

func (r *fakeRequest) RespondJSON(v any, opts ...micro.RespondOpt) error {
	bs, err := json.Marshal(v)
	if err != nil {
		return err
	}

	r.resp = bs
	return nil
}

func (r *fakeRequest) Error(code, description string, data []byte, opts ...micro.RespondOpt) error {
	r.errCode = code
	r.errDetail = description
	return nil
}

func (r *fakeRequest) Data() []byte           { return r.data }
func (r *fakeRequest) Headers() micro.Headers { return r.headers }
func (r *fakeRequest) Subject() string        { return "kdvector.test" }
func (r *fakeRequest) Reply() string          { return "" }

func newRequest(data string) *fakeRequest {
	return &fakeRequest{
		data:    []byte(data),
		headers: make(micro.Headers),
	}
}

func newEndpoints(t *testing.T) kdvector.EndpointSet {
	svc, err := kdvector.NewService(context.Background(),
		kdvector.Config{Dimension: 2}, hash.NewHashEmbedder(2), nil, nil)
	require.NoError(t, err)

	t.Cleanup(func() { svc.Close() })

	return kdvector.MakeEndpoints(svc)
}

func TestHandlers(t *testing.T) {
	assert := assert.New(t)

	endpoints := newEndpoints(t)

	r := newRequest(`{"vector":[1,2],"metadata":"{\"text\":\"a\"}"}`)
	InsertHandler(endpoints.Insert)(r)
	assert.Empty(r.errCode)
	assert.JSONEq(`{"id":0}`, string(r.resp))

	r = newRequest(`{"vector":[1,2.5],"k":1}`)
	QueryVectorHandler(endpoints.QueryVector)(r)
	assert.Empty(r.errCode)

	var results []kdvector.QueryResult
	require.NoError(t, json.Unmarshal(r.resp, &results))
	if assert.Len(results, 1) {
		assert.Equal(0, results[0].ID)
		assert.InDelta(0.5, results[0].Distance, 1e-6)
		assert.JSONEq(`{"text":"a"}`, string(results[0].Metadata))
	}

	r = newRequest("0")
	MetadataHandler(endpoints.Metadata)(r)
	assert.JSONEq(`{"id":0,"metadata":"{\"text\":\"a\"}"}`, string(r.resp))

	r = newRequest(``)
	StatsHandler(endpoints.Stats)(r)

	var stats kdvector.Stats
	require.NoError(t, json.Unmarshal(r.resp, &stats))
	assert.Equal(1, stats.TotalVectors)

	r = newRequest(``)
	ClearHandler(endpoints.Clear)(r)
	assert.Equal("OK", string(r.resp))
}

func TestHandlerErrors(t *testing.T) {
	assert := assert.New(t)

	endpoints := newEndpoints(t)

	r := newRequest(`not json`)
	InsertHandler(endpoints.Insert)(r)
	assert.Equal("400", r.errCode)

	r = newRequest(`{"vector":[1,2,3]}`)
	InsertHandler(endpoints.Insert)(r)
	assert.Equal("400", r.errCode)

	r = newRequest("7")
	MetadataHandler(endpoints.Metadata)(r)
	assert.Equal("404", r.errCode)

	r = newRequest(`{"query":"  "}`)
	QueryHandler(endpoints.Query)(r)
	assert.Equal("400", r.errCode)

	r = newRequest(``)
	SaveHandler(endpoints.Save)(r)
	assert.Equal("417", r.errCode)
	assert.Equal(kdvector.ErrSnapshotDisabled.Error(), r.errDetail)
}

func TestError(t *testing.T) {
	assert := assert.New(t)

	msg := nats.NewMsg("kdvector.metadata")
	assert.NoError(Error(msg))

	msg.Header.Set(micro.ErrorCodeHeader, "404")
	msg.Header.Set(micro.ErrorHeader, "point not found")
	assert.ErrorIs(Error(msg), kdvector.ErrPointNotFound)

	msg.Header.Set(micro.ErrorCodeHeader, "417")
	assert.EqualError(Error(msg), "417:point not found")

	assert.Error(Error(nil))
}
