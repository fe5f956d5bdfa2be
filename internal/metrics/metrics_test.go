package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestRecordTurn(t *testing.T) {
	before := testutil.ToFloat64(turnsTotal.WithLabelValues("assess", "assessed"))
	RecordTurn("assess", "assessed", 12*time.Millisecond)
	RecordTurn("assess", "assessed", 3*time.Millisecond)
	assert.Equal(t, before+2, testutil.ToFloat64(turnsTotal.WithLabelValues("assess", "assessed")))
}

func TestRecordRetrieval(t *testing.T) {
	RecordRetrieval("lexical", "ask", 0)
	RecordRetrieval("lexical", "ask", 3)
	assert.GreaterOrEqual(t, testutil.ToFloat64(retrievalTotal.WithLabelValues("lexical", "ask", "empty")), 1.0)
	assert.GreaterOrEqual(t, testutil.ToFloat64(retrievalTotal.WithLabelValues("lexical", "ask", "hit")), 1.0)
}

func TestCodeLabel(t *testing.T) {
	assert.Equal(t, "200", codeLabel(0))
	assert.Equal(t, "404", codeLabel(404))
	assert.Equal(t, "503", codeLabel(503))
}

func TestSetActiveSessions(t *testing.T) {
	SetActiveSessions(4)
	assert.Equal(t, 4.0, testutil.ToFloat64(sessionsActive))
}
