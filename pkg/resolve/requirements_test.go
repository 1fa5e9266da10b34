package resolve

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRequirements(t *testing.T) {
	tools := []ToolRecord{
		{Identifier: "plotly/dash", Resolution: OK("dash")},
		{Identifier: "hail-is/hail", Resolution: Skipped("requires JVM")},
		{Identifier: "x/scikit-bio", Resolution: Unknown("scikit-bio")},
		{Identifier: "y/nothing", Resolution: Unknown("")},
		{Identifier: "z/dash-fork", Resolution: OK("Dash")},
		{Identifier: "w/scikit_bio", Resolution: Unknown("scikit_bio")},
	}

	assert.Equal(t, []string{"dash", "scikit-bio"}, Requirements(tools))
	assert.Empty(t, Requirements(nil))

	var buf bytes.Buffer
	require.NoError(t, WriteRequirements(&buf, tools))
	assert.Equal(t, "dash\nscikit-bio\n", buf.String())
}
