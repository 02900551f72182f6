package kdvector

import (
	"context"
	"errors"
)

var ErrInvalidResponse = errors.New("invalid response type")

// ProxyMiddleware turns a remote EndpointSet into a Service.
func ProxyMiddleware(endpoints *EndpointSet) ServiceMiddleware {
	return func(next Service) Service {
		return &proxyMiddleware{
			endpoints: endpoints,
		}
	}
}

type proxyMiddleware struct {
	endpoints *EndpointSet
}

func (mw *proxyMiddleware) Close() error {
	return errors.New("method not implemented")
}

func (mw *proxyMiddleware) Upload(ctx context.Context, text string) (*UploadResult, error) {
	resp, err := mw.endpoints.Upload(ctx, UploadRequest{Resume: text})
	if err != nil {
		return nil, err
	}

	result, ok := resp.(*UploadResult)
	if !ok {
		return nil, ErrInvalidResponse
	}

	return result, nil
}

func (mw *proxyMiddleware) Insert(ctx context.Context, vector []float32, metadata string) (int, error) {
	req := InsertRequest{
		Vector:   vector,
		Metadata: metadata,
	}

	resp, err := mw.endpoints.Insert(ctx, req)
	if err != nil {
		return 0, err
	}

	result, ok := resp.(*InsertResponse)
	if !ok {
		return 0, ErrInvalidResponse
	}

	return result.ID, nil
}

func (mw *proxyMiddleware) Query(ctx context.Context, text string, k int) ([]QueryResult, error) {
	req := QueryRequest{
		Query: text,
		K:     k,
	}

	resp, err := mw.endpoints.Query(ctx, req)
	if err != nil {
		return nil, err
	}

	results, ok := resp.([]QueryResult)
	if !ok {
		return nil, ErrInvalidResponse
	}

	return results, nil
}

func (mw *proxyMiddleware) QueryVector(ctx context.Context, vector []float32, k int) ([]QueryResult, error) {
	req := QueryVectorRequest{
		Vector: vector,
		K:      k,
	}

	resp, err := mw.endpoints.QueryVector(ctx, req)
	if err != nil {
		return nil, err
	}

	results, ok := resp.([]QueryResult)
	if !ok {
		return nil, ErrInvalidResponse
	}

	return results, nil
}

func (mw *proxyMiddleware) Metadata(ctx context.Context, id int) (string, error) {
	resp, err := mw.endpoints.Metadata(ctx, id)
	if err != nil {
		return "", err
	}

	result, ok := resp.(*MetadataResponse)
	if !ok {
		return "", ErrInvalidResponse
	}

	return result.Metadata, nil
}

func (mw *proxyMiddleware) Clear(ctx context.Context) error {
	_, err := mw.endpoints.Clear(ctx, nil)
	return err
}

func (mw *proxyMiddleware) Stats(ctx context.Context) (*Stats, error) {
	resp, err := mw.endpoints.Stats(ctx, nil)
	if err != nil {
		return nil, err
	}

	stats, ok := resp.(*Stats)
	if !ok {
		return nil, ErrInvalidResponse
	}

	return stats, nil
}

func (mw *proxyMiddleware) Save(ctx context.Context) error {
	_, err := mw.endpoints.Save(ctx, nil)
	return err
}

func (mw *proxyMiddleware) Load(ctx context.Context) error {
	_, err := mw.endpoints.Load(ctx, nil)
	return err
}
