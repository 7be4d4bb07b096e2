// Package deepsearch runs the deep-search variant of the summary pipeline and
// turns its free-text answer into structured related documents, key insights
// and cross references.
package deepsearch

import (
	"context"
	"time"

	"compliance-assistant-be/internal/pkg/logger"
	"compliance-assistant-be/pkg/events"
	"compliance-assistant-be/pkg/rag"
)

type Searcher interface {
	DeepSearch(ctx context.Context, req rag.DeepSearchRequest) (*rag.Result, error)
}

type Orchestrator struct {
	searcher  Searcher
	publisher events.Publisher
	logger    logger.ILogger
	now       func() time.Time
}

func NewOrchestrator(searcher Searcher, publisher events.Publisher, log logger.ILogger) *Orchestrator {
	if log == nil {
		log = logger.NewNopLogger()
	}
	return &Orchestrator{
		searcher:  searcher,
		publisher: publisher,
		logger:    log,
		now:       time.Now,
	}
}

// Run performs one deep search. Backend errors are returned unchanged.
func (o *Orchestrator) Run(ctx context.Context, req rag.DeepSearchRequest) (*rag.DeepSearchResult, error) {
	q, err := rag.ValidateQuery(req.Query)
	if err != nil {
		return nil, err
	}
	req.Query = q

	start := o.now()
	raw, err := o.searcher.DeepSearch(ctx, req)
	if err != nil {
		o.logger.Warn("DeepSearch", "Deep search failed", map[string]interface{}{"query": q, "error": err.Error()})
		return nil, err
	}

	result := Build(raw, o.now().Sub(start))
	if req.MaxDocuments > 0 && len(result.RelatedDocuments) > req.MaxDocuments {
		result.RelatedDocuments = result.RelatedDocuments[:req.MaxDocuments]
	}

	o.logger.Info("DeepSearch", "Deep search completed", map[string]interface{}{
		"query":             q,
		"related_documents": len(result.RelatedDocuments),
		"cross_references":  len(result.CrossReferences),
		"processing_time":   result.ProcessingTime,
	})

	if o.publisher != nil {
		evt := events.DeepSearchCompleted(req.UserID, q, len(result.RelatedDocuments), len(result.CrossReferences), result.ProcessingTime)
		if err := o.publisher.Publish(ctx, evt); err != nil {
			o.logger.Warn("DeepSearch", "Failed to publish event", map[string]interface{}{"error": err.Error()})
		}
	}
	return result, nil
}

// Build assembles a DeepSearchResult from a raw summary result.
func Build(raw *rag.Result, elapsed time.Duration) *rag.DeepSearchResult {
	return &rag.DeepSearchResult{
		Status:            raw.Status,
		Query:             raw.Query,
		EnhancedSummary:   raw.Summary,
		RelatedDocuments:  ExtractRelatedDocuments(raw.Summary),
		KeyInsights:       ExtractInsights(raw.Summary),
		CrossReferences:   ExtractCrossReferences(raw.Summary),
		DocumentsSearched: raw.DocumentsFound,
		ProcessingTime:    elapsed.Seconds(),
	}
}
