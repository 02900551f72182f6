package kdvector

import (
	"context"

	"go.uber.org/zap"
)

func LoggingMiddleware(log *zap.Logger) ServiceMiddleware {
	log = log.With(
		zap.String("service", "kdvector"),
	)

	return func(next Service) Service {
		log.Info("service initialized")

		return &loggingMiddleware{
			log:  log,
			next: next,
		}
	}
}

type loggingMiddleware struct {
	log  *zap.Logger
	next Service
}

func (mw *loggingMiddleware) logger(ctx context.Context, action string) *zap.Logger {
	log := mw.log.With(
		zap.String("action", action),
	)

	requestID, ok := ctx.Value(RequestID).(string)
	if ok {
		log = log.With(
			zap.String("request_id", requestID),
		)
	}

	return log
}

func (mw *loggingMiddleware) Close() error {
	log := mw.log.With(
		zap.String("action", "close"),
	)

	err := mw.next.Close()
	if err != nil {
		log.Error(err.Error())
		return err
	}

	log.Info("service closed")
	return nil
}

func (mw *loggingMiddleware) Upload(ctx context.Context, text string) (*UploadResult, error) {
	log := mw.logger(ctx, "upload").With(
		zap.Int("length", len(text)),
	)

	result, err := mw.next.Upload(ctx, text)
	if err != nil {
		log.Error(err.Error())
		return nil, err
	}

	log.Info("document uploaded", zap.Int("chunks", result.Chunks))
	return result, nil
}

func (mw *loggingMiddleware) Insert(ctx context.Context, vector []float32, metadata string) (int, error) {
	log := mw.logger(ctx, "insert").With(
		zap.Int("dimension", len(vector)),
	)

	id, err := mw.next.Insert(ctx, vector, metadata)
	if err != nil {
		log.Error(err.Error())
		return 0, err
	}

	log.Info("vector inserted", zap.Int("id", id))
	return id, nil
}

func (mw *loggingMiddleware) Query(ctx context.Context, text string, k int) ([]QueryResult, error) {
	log := mw.logger(ctx, "query").With(
		zap.String("query", text),
	)

	if k > 0 {
		log = log.With(
			zap.Int("k", k),
		)
	}

	results, err := mw.next.Query(ctx, text, k)
	if err != nil {
		log.Error(err.Error())
		return nil, err
	}

	log.Info("query answered", zap.Int("count", len(results)))
	return results, nil
}

func (mw *loggingMiddleware) QueryVector(ctx context.Context, vector []float32, k int) ([]QueryResult, error) {
	log := mw.logger(ctx, "query_vector").With(
		zap.Int("dimension", len(vector)),
		zap.Int("k", k),
	)

	results, err := mw.next.QueryVector(ctx, vector, k)
	if err != nil {
		log.Error(err.Error())
		return nil, err
	}

	log.Info("query answered", zap.Int("count", len(results)))
	return results, nil
}

func (mw *loggingMiddleware) Metadata(ctx context.Context, id int) (string, error) {
	log := mw.logger(ctx, "metadata").With(
		zap.Int("id", id),
	)

	meta, err := mw.next.Metadata(ctx, id)
	if err != nil {
		log.Error(err.Error())
		return "", err
	}

	log.Debug("metadata found")
	return meta, nil
}

func (mw *loggingMiddleware) Clear(ctx context.Context) error {
	log := mw.logger(ctx, "clear")

	err := mw.next.Clear(ctx)
	if err != nil {
		log.Error(err.Error())
		return err
	}

	log.Info("index cleared")
	return nil
}

func (mw *loggingMiddleware) Stats(ctx context.Context) (*Stats, error) {
	log := mw.logger(ctx, "stats")

	stats, err := mw.next.Stats(ctx)
	if err != nil {
		log.Error(err.Error())
		return nil, err
	}

	log.Debug("stats reported", zap.Int("total_vectors", stats.TotalVectors))
	return stats, nil
}

func (mw *loggingMiddleware) Save(ctx context.Context) error {
	log := mw.logger(ctx, "save")

	err := mw.next.Save(ctx)
	if err != nil {
		log.Error(err.Error())
		return err
	}

	log.Info("snapshot saved")
	return nil
}

func (mw *loggingMiddleware) Load(ctx context.Context) error {
	log := mw.logger(ctx, "load")

	err := mw.next.Load(ctx)
	if err != nil {
		log.Error(err.Error())
		return err
	}

	log.Info("snapshot loaded")
	return nil
}
