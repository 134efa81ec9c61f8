package sales_repo

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"retailcore/internal/core/id"
)

func TestNaturalKeyQuery(t *testing.T) {
	repo := NewSaleRepo(nil)
	ts := time.Date(2025, 5, 1, 10, 30, 0, 0, time.UTC)
	channelID := id.New()

	sql, args, err := repo.naturalKeyQuery(ts, channelID, "T-100").ToSql()
	require.NoError(t, err)

	assert.Equal(t,
		"SELECT EXISTS ( SELECT 1 FROM sales WHERE channel_id = $1 AND reference = $2 AND ts = $3 )",
		sql)
	assert.Equal(t, []any{channelID.String(), "T-100", ts}, args)
}
