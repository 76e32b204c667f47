package render

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestColorizeLogs(t *testing.T) {
	content := "INFO ready\nERROR boom\nWARNING slow\nDEBUG detail\n"

	colored := ColorizeLogs(content, true)
	assert.Contains(t, colored, colorGreen+"INFO"+colorReset)
	assert.Contains(t, colored, colorRed+"ERROR"+colorReset)
	assert.Contains(t, colored, colorYellow+"WARNING"+colorReset)
	assert.Contains(t, colored, colorGray+"DEBUG"+colorReset)
}

func TestColorizeLogs_Disabled(t *testing.T) {
	content := "ERROR boom\n"
	assert.Equal(t, content, ColorizeLogs(content, false))
}

func TestColorizeLogs_KeywordInsideWordIgnored(t *testing.T) {
	content := "TERRORIZED value\n"
	assert.Equal(t, content, ColorizeLogs(content, true),
		"only whole-word level keywords are colorized")
}
