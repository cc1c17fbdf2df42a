package dbutil

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestFinalizeRebindsPlaceholders(t *testing.T) {
	query, args := Finalize("SELECT a FROM t WHERE x = ? AND y < ?", []interface{}{1, 2})
	require.Equal(t, "SELECT a FROM t WHERE x = $1 AND y < $2", query)
	require.Len(t, args, 2)
}
