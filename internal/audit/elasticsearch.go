// internal/audit/elasticsearch.go
package audit

import (
	"bytes"
	"context"
	"encoding/json"
	"time"

	"restock-dispatcher/internal/common/logger"

	"github.com/elastic/go-elasticsearch/v8"
	"github.com/google/uuid"
)

// ESRecorder indexes dispatch records into Elasticsearch. Failures are
// logged and swallowed.
type ESRecorder struct {
	client *elasticsearch.Client
	index  string
	logger logger.Logger
}

func NewESRecorder(client *elasticsearch.Client, index string, log logger.Logger) *ESRecorder {
	return &ESRecorder{
		client: client,
		index:  index,
		logger: log.WithFields(map[string]interface{}{"component": "audit-recorder"}),
	}
}

func (r *ESRecorder) RecordDispatch(ctx context.Context, record DispatchRecord) {
	body, err := json.Marshal(record)
	if err != nil {
		r.logger.WithError(err).Error("encode audit record", nil)
		return
	}

	indexCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	res, err := r.client.Index(
		r.index,
		bytes.NewReader(body),
		r.client.Index.WithContext(indexCtx),
		r.client.Index.WithDocumentID(uuid.New().String()),
	)
	if err != nil {
		r.logger.WithError(err).Error("index audit record", map[string]interface{}{
			"index": r.index,
		})
		return
	}
	defer res.Body.Close()

	if res.IsError() {
		r.logger.Error("index audit record rejected", map[string]interface{}{
			"index":  r.index,
			"status": res.Status(),
		})
	}
}
