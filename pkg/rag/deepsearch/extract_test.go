package deepsearch

import (
	"context"
	"fmt"
	"strings"
	"testing"
	"time"

	"compliance-assistant-be/pkg/events"
	"compliance-assistant-be/pkg/rag"
	"compliance-assistant-be/pkg/rag/client"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const summary = `Under RA 9003, local government units must segregate waste at source.
Data handling falls under Republic Act No. 10173. Controllers registered with the
commission must comply with Republic Act No. 10173 and NPC Memorandum Circular No. 16-01.

Key obligations:
- Establish a materials recovery facility in every barangay cluster
- Appoint a data protection officer reporting to management
* Short item
1. Conduct a privacy impact assessment before processing begins
2) Notify the commission of breaches within seventy-two hours

See also Executive Order No. 174 and Presidential Decree 1586.`

func TestExtractionScenario(t *testing.T) {
	text := "RA 9003 applies. Republic Act No. 10173 governs data. Again, Republic Act No. 10173 requires consent."

	docs := ExtractRelatedDocuments(text)
	require.Len(t, docs, 2)
	assert.Equal(t, "Republic Act No. 9003", docs[0].Title)
	assert.Equal(t, 0.95, docs[0].RelevanceScore)
	assert.Equal(t, "Republic Act No. 10173", docs[1].Title)
	assert.Equal(t, 0.90, docs[1].RelevanceScore)
	assert.Greater(t, docs[0].RelevanceScore, docs[1].RelevanceScore)

	refs := ExtractCrossReferences(text)
	assert.Equal(t, []string{"RA 9003", "Republic Act No. 10173"}, refs)
}

func TestExtractRelatedDocumentsCapsAtFive(t *testing.T) {
	var b strings.Builder
	for i := 1; i <= 8; i++ {
		fmt.Fprintf(&b, "RA %d is relevant. ", 1000+i)
	}

	docs := ExtractRelatedDocuments(b.String())
	require.Len(t, docs, MaxRelatedDocuments)
	assert.Equal(t, 0.75, docs[4].RelevanceScore)
	assert.Equal(t, "RA 1005", docs[4].Reference)
	assert.Equal(t, "RA 1005 is relevant.", docs[4].Excerpt)
}

func TestExtractInsights(t *testing.T) {
	insights := ExtractInsights(summary)
	assert.Equal(t, []string{
		"Establish a materials recovery facility in every barangay cluster",
		"Appoint a data protection officer reporting to management",
		"Conduct a privacy impact assessment before processing begins",
		"Notify the commission of breaches within seventy-two hours",
	}, insights)
}

func TestExtractInsightsCapsAtEight(t *testing.T) {
	var b strings.Builder
	for i := 0; i < 12; i++ {
		fmt.Fprintf(&b, "- insight number %02d with enough length\n", i)
	}
	assert.Len(t, ExtractInsights(b.String()), MaxInsights)
}

func TestExtractCrossReferences(t *testing.T) {
	refs := ExtractCrossReferences(summary)
	assert.Equal(t, []string{
		"RA 9003",
		"Republic Act No. 10173",
		"NPC Memorandum Circular No. 16-01",
		"Executive Order No. 174",
		"Presidential Decree 1586",
	}, refs)
}

func TestExtractCrossReferencesCapsAtTen(t *testing.T) {
	var b strings.Builder
	for i := 1; i <= 15; i++ {
		fmt.Fprintf(&b, "EO %d; ", i)
	}
	assert.Len(t, ExtractCrossReferences(b.String()), MaxCrossReferences)
}

func TestNoMatchesYieldEmptySlices(t *testing.T) {
	text := "Nothing legal to see here."
	assert.NotNil(t, ExtractRelatedDocuments(text))
	assert.Empty(t, ExtractRelatedDocuments(text))
	assert.NotNil(t, ExtractInsights(text))
	assert.Empty(t, ExtractInsights(text))
	assert.NotNil(t, ExtractCrossReferences(text))
	assert.Empty(t, ExtractCrossReferences(text))
}

type stubSearcher struct {
	got rag.DeepSearchRequest
	res *rag.Result
	err error
}

func (s *stubSearcher) DeepSearch(_ context.Context, req rag.DeepSearchRequest) (*rag.Result, error) {
	s.got = req
	return s.res, s.err
}

type recordingPublisher struct {
	events []events.Event
}

func (p *recordingPublisher) Publish(_ context.Context, e events.Event) error {
	p.events = append(p.events, e)
	return nil
}

func TestRunBuildsStructuredResult(t *testing.T) {
	searcher := &stubSearcher{res: &rag.Result{
		Status:         rag.StatusCompleted,
		Query:          "waste and privacy duties",
		Summary:        summary,
		DocumentsFound: 12,
	}}
	pub := &recordingPublisher{}
	o := NewOrchestrator(searcher, pub, nil)

	res, err := o.Run(context.Background(), rag.DeepSearchRequest{Query: "  waste and privacy duties ", UserID: "u-1"})
	require.NoError(t, err)

	assert.Equal(t, "waste and privacy duties", searcher.got.Query)
	assert.Equal(t, summary, res.EnhancedSummary)
	assert.Equal(t, 12, res.DocumentsSearched)
	assert.Len(t, res.RelatedDocuments, 2)
	assert.Len(t, res.KeyInsights, 4)
	assert.GreaterOrEqual(t, res.ProcessingTime, 0.0)

	require.Len(t, pub.events, 1)
	assert.Equal(t, events.TypeDeepSearchCompleted, pub.events[0].EventType())
	assert.Equal(t, "u-1", pub.events[0].Recipient())
}

func TestRunRespectsMaxDocuments(t *testing.T) {
	searcher := &stubSearcher{res: &rag.Result{Status: rag.StatusCompleted, Summary: summary}}
	o := NewOrchestrator(searcher, nil, nil)

	res, err := o.Run(context.Background(), rag.DeepSearchRequest{Query: "waste rules", MaxDocuments: 1})
	require.NoError(t, err)
	assert.Len(t, res.RelatedDocuments, 1)
}

func TestRunPropagatesBackendError(t *testing.T) {
	searcher := &stubSearcher{err: &client.BackendError{StatusCode: 503, Detail: "Search index unavailable"}}
	o := NewOrchestrator(searcher, nil, nil)

	_, err := o.Run(context.Background(), rag.DeepSearchRequest{Query: "waste rules"})
	require.Error(t, err)
	assert.Equal(t, "Search index unavailable", err.Error())
}

func TestBuildMeasuresSeconds(t *testing.T) {
	res := Build(&rag.Result{Status: rag.StatusNoResults}, 1500*time.Millisecond)
	assert.Equal(t, 1.5, res.ProcessingTime)
	assert.Equal(t, rag.StatusNoResults, res.Status)
}
