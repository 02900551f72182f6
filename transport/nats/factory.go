package nats

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/go-kit/kit/endpoint"
	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/micro"

	"github.com/flarexio/kdvector"
)

// Embedding a whole document may take far longer than nats.DefaultTimeout.
var Timeout = 30 * time.Second

func MakeEndpoints(nc *nats.Conn, prefix string) *kdvector.EndpointSet {
	return &kdvector.EndpointSet{
		Upload:      UploadEndpoint(nc, prefix+".upload"),
		Insert:      InsertEndpoint(nc, prefix+".insert"),
		Query:       QueryEndpoint(nc, prefix+".query"),
		QueryVector: QueryVectorEndpoint(nc, prefix+".query_vector"),
		Metadata:    MetadataEndpoint(nc, prefix+".metadata"),
		Clear:       ClearEndpoint(nc, prefix+".clear"),
		Stats:       StatsEndpoint(nc, prefix+".stats"),
		Save:        SaveEndpoint(nc, prefix+".save"),
		Load:        LoadEndpoint(nc, prefix+".load"),
	}
}

func request(ctx context.Context, nc *nats.Conn, topic string, data []byte) ([]byte, error) {
	msg := nats.NewMsg(topic)
	msg.Data = data

	if requestID, ok := ctx.Value(kdvector.RequestID).(string); ok {
		msg.Header.Set(HeaderRequestID, requestID)
	}

	resp, err := nc.RequestMsg(msg, Timeout)
	if err != nil {
		return nil, err
	}

	if err := Error(resp); err != nil {
		return nil, err
	}

	return resp.Data, nil
}

func requestJSON(ctx context.Context, nc *nats.Conn, topic string, req any, resp any) error {
	data, err := json.Marshal(req)
	if err != nil {
		return err
	}

	bs, err := request(ctx, nc, topic, data)
	if err != nil {
		return err
	}

	return json.Unmarshal(bs, resp)
}

func UploadEndpoint(nc *nats.Conn, topic string) endpoint.Endpoint {
	return func(ctx context.Context, request any) (any, error) {
		req, ok := request.(kdvector.UploadRequest)
		if !ok {
			return nil, errors.New("invalid request")
		}

		var result *kdvector.UploadResult
		if err := requestJSON(ctx, nc, topic, &req, &result); err != nil {
			return nil, err
		}

		return result, nil
	}
}

func InsertEndpoint(nc *nats.Conn, topic string) endpoint.Endpoint {
	return func(ctx context.Context, request any) (any, error) {
		req, ok := request.(kdvector.InsertRequest)
		if !ok {
			return nil, errors.New("invalid request")
		}

		var resp *kdvector.InsertResponse
		if err := requestJSON(ctx, nc, topic, &req, &resp); err != nil {
			return nil, err
		}

		return resp, nil
	}
}

func QueryEndpoint(nc *nats.Conn, topic string) endpoint.Endpoint {
	return func(ctx context.Context, request any) (any, error) {
		req, ok := request.(kdvector.QueryRequest)
		if !ok {
			return nil, errors.New("invalid request")
		}

		var results []kdvector.QueryResult
		if err := requestJSON(ctx, nc, topic, &req, &results); err != nil {
			return nil, err
		}

		return results, nil
	}
}

func QueryVectorEndpoint(nc *nats.Conn, topic string) endpoint.Endpoint {
	return func(ctx context.Context, request any) (any, error) {
		req, ok := request.(kdvector.QueryVectorRequest)
		if !ok {
			return nil, errors.New("invalid request")
		}

		var results []kdvector.QueryResult
		if err := requestJSON(ctx, nc, topic, &req, &results); err != nil {
			return nil, err
		}

		return results, nil
	}
}

func MetadataEndpoint(nc *nats.Conn, topic string) endpoint.Endpoint {
	return func(ctx context.Context, req any) (any, error) {
		id, ok := req.(int)
		if !ok {
			return nil, errors.New("invalid request")
		}

		data, err := request(ctx, nc, topic, []byte(strconv.Itoa(id)))
		if err != nil {
			return nil, err
		}

		var resp *kdvector.MetadataResponse
		if err := json.Unmarshal(data, &resp); err != nil {
			return nil, err
		}

		return resp, nil
	}
}

func ClearEndpoint(nc *nats.Conn, topic string) endpoint.Endpoint {
	return func(ctx context.Context, req any) (any, error) {
		_, err := request(ctx, nc, topic, nil)
		return nil, err
	}
}

func StatsEndpoint(nc *nats.Conn, topic string) endpoint.Endpoint {
	return func(ctx context.Context, req any) (any, error) {
		data, err := request(ctx, nc, topic, nil)
		if err != nil {
			return nil, err
		}

		var stats *kdvector.Stats
		if err := json.Unmarshal(data, &stats); err != nil {
			return nil, err
		}

		return stats, nil
	}
}

func SaveEndpoint(nc *nats.Conn, topic string) endpoint.Endpoint {
	return func(ctx context.Context, req any) (any, error) {
		_, err := request(ctx, nc, topic, nil)
		return nil, err
	}
}

func LoadEndpoint(nc *nats.Conn, topic string) endpoint.Endpoint {
	return func(ctx context.Context, req any) (any, error) {
		_, err := request(ctx, nc, topic, nil)
		return nil, err
	}
}

// Error turns a micro service error response back into an error. Known
// codes wrap the matching kdvector error.
func Error(msg *nats.Msg) error {
	if msg == nil {
		return errors.New("nil message")
	}

	code := msg.Header.Get(micro.ErrorCodeHeader)
	if code == "" {
		return nil
	}

	description := msg.Header.Get(micro.ErrorHeader)
	if description == "" {
		description = "unknown error"
	}

	switch code {
	case "404":
		return fmt.Errorf("%w: %s", kdvector.ErrPointNotFound, description)

	default:
		return errors.New(code + ":" + description)
	}
}
