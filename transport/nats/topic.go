package nats

import (
	"github.com/nats-io/nats.go/micro"

	"github.com/flarexio/kdvector"
)

func AddEndpoints(group micro.Group, endpoints kdvector.EndpointSet) {
	group.AddEndpoint("upload", UploadHandler(endpoints.Upload))
	group.AddEndpoint("insert", InsertHandler(endpoints.Insert))
	group.AddEndpoint("query", QueryHandler(endpoints.Query))
	group.AddEndpoint("query_vector", QueryVectorHandler(endpoints.QueryVector))
	group.AddEndpoint("metadata", MetadataHandler(endpoints.Metadata))
	group.AddEndpoint("clear", ClearHandler(endpoints.Clear))
	group.AddEndpoint("stats", StatsHandler(endpoints.Stats))
	group.AddEndpoint("save", SaveHandler(endpoints.Save))
	group.AddEndpoint("load", LoadHandler(endpoints.Load))
}
