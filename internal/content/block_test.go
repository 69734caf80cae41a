package content_test

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"folio/internal/content"
	"folio/internal/testsupport"
)

func TestPutAndGet(t *testing.T) {
	dbManager, logger := testsupport.SetupTestDBManager(t)
	db := dbManager.GetConnection()
	now := time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC)

	t.Run("each variant round trips through storage", func(t *testing.T) {
		values := map[string]content.Value{
			"hero.title":   content.Text("Hi, I build things"),
			"about.body":   content.HTML("<p>About <em>me</em></p>"),
			"testimonials": content.JSON(`[{"author":"Ana","quote":"Great work"}]`),
		}
		for key, value := range values {
			_, err := content.Put(db, logger, key, value, now)
			require.NoError(t, err, key)
		}

		for key, want := range values {
			block, err := content.Get(db, key)
			require.NoError(t, err, key)

			got, err := block.Decode()
			require.NoError(t, err)
			switch w := want.(type) {
			case content.JSON:
				g, ok := got.(content.JSON)
				require.True(t, ok)
				assert.JSONEq(t, string(w), string(g))
			default:
				assert.Equal(t, want, got)
			}
		}
	})

	t.Run("put replaces existing block and its kind", func(t *testing.T) {
		_, err := content.Put(db, logger, "cta", content.Text("Hire me"), now)
		require.NoError(t, err)
		block, err := content.Put(db, logger, "CTA", content.HTML("<b>Hire me</b>"), now.Add(time.Hour))
		require.NoError(t, err)

		assert.Equal(t, "cta", block.Key)
		assert.Equal(t, content.KindHTML, block.Kind)

		all, err := content.List(db)
		require.NoError(t, err)
		count := 0
		for _, b := range all {
			if b.Key == "cta" {
				count++
			}
		}
		assert.Equal(t, 1, count)
	})

	t.Run("serves value by kind", func(t *testing.T) {
		block, err := content.Put(db, logger, "stats", content.JSON(`{"projects":12}`), now)
		require.NoError(t, err)

		out, err := json.Marshal(block)
		require.NoError(t, err)

		var decoded map[string]any
		require.NoError(t, json.Unmarshal(out, &decoded))
		assert.Equal(t, "stats", decoded["key"])
		assert.Equal(t, "json", decoded["kind"])
		assert.Equal(t, map[string]any{"projects": float64(12)}, decoded["value"])
	})

	t.Run("unknown stored kind fails to decode", func(t *testing.T) {
		block := content.Block{Key: "broken", Kind: content.Kind("markdown")}
		_, err := block.Decode()
		assert.ErrorIs(t, err, content.ErrUnknownKind)
	})

	t.Run("missing key is not found", func(t *testing.T) {
		_, err := content.Get(db, "nope")
		assert.ErrorIs(t, err, content.ErrNotFound)
	})

	t.Run("invalid key is rejected", func(t *testing.T) {
		_, err := content.Put(db, logger, "bad key!", content.Text("x"), now)
		assert.ErrorIs(t, err, content.ErrInvalidKey)
	})
}

func TestDelete(t *testing.T) {
	dbManager, logger := testsupport.SetupTestDBManager(t)
	db := dbManager.GetConnection()

	_, err := content.Put(db, logger, "footer", content.Text("bye"), time.Now())
	require.NoError(t, err)

	require.NoError(t, content.Delete(db, logger, "footer"))
	_, err = content.Get(db, "footer")
	assert.ErrorIs(t, err, content.ErrNotFound)
	assert.ErrorIs(t, content.Delete(db, logger, "footer"), content.ErrNotFound)
}

func TestDecodeValue(t *testing.T) {
	tests := []struct {
		name    string
		kind    string
		raw     string
		want    content.Value
		wantErr bool
	}{
		{"text", "text", `"hello"`, content.Text("hello"), false},
		{"html", "html", `"<p>x</p>"`, content.HTML("<p>x</p>"), false},
		{"json object", "json", `{"a":1}`, content.JSON(`{"a":1}`), false},
		{"text needs a string", "text", `42`, nil, true},
		{"invalid json", "json", `{`, nil, true},
		{"unknown kind", "markdown", `"x"`, nil, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := content.DecodeValue(tt.kind, json.RawMessage(tt.raw))
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}
