package importer

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReadRows(t *testing.T) {
	input := "Date,Amount,Description\n" +
		"01/02/2024,-4.50,\"Coffee, the good kind\"\n" +
		"01/03/2024,2500.00\n"

	rows, err := ReadRows(strings.NewReader(input))
	require.NoError(t, err)
	require.Len(t, rows, 3)

	assert.Equal(t, []string{"Date", "Amount", "Description"}, rows[0])
	assert.Equal(t, "Coffee, the good kind", rows[1][2])
	assert.Len(t, rows[2], 2, "ragged rows are allowed")
}

func TestReadRows_Empty(t *testing.T) {
	rows, err := ReadRows(strings.NewReader(""))
	require.NoError(t, err)
	assert.Empty(t, rows)
}
