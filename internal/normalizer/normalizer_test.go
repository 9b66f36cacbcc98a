package normalizer_test

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rasool-click/wessaal-relay/internal/config"
	"github.com/rasool-click/wessaal-relay/internal/normalizer"
)

func newNormalizer() *normalizer.Normalizer {
	return normalizer.New(config.RawConfig{})
}

func TestPickInstance(t *testing.T) {
	n := newNormalizer()

	tests := []struct {
		name     string
		payload  any
		expected string
	}{
		{
			name:     "missing every instance field",
			payload:  map[string]any{"foo": "bar"},
			expected: "unknown",
		},
		{
			name:     "non-object payload",
			payload:  "just a string",
			expected: "unknown",
		},
		{
			name:     "top-level instance",
			payload:  map[string]any{"instance": "acct1"},
			expected: "acct1",
		},
		{
			name:     "instanceName fallback",
			payload:  map[string]any{"instanceName": "acct2"},
			expected: "acct2",
		},
		{
			name: "nested data.instance",
			payload: map[string]any{
				"data": map[string]any{"instance": "acct3"},
			},
			expected: "acct3",
		},
		{
			name: "top-level wins over nested",
			payload: map[string]any{
				"instance": "top",
				"data":     map[string]any{"instance": "nested"},
			},
			expected: "top",
		},
		{
			name: "empty top-level falls through to nested",
			payload: map[string]any{
				"instance": "",
				"data":     map[string]any{"instance": "nested"},
			},
			expected: "nested",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := n.Normalize("some.event", tt.payload)
			assert.Equal(t, tt.expected, env.Instance)
		})
	}
}

func TestNormalizeMessageUpsert(t *testing.T) {
	n := newNormalizer()

	t.Run("nested message payload", func(t *testing.T) {
		env := n.Normalize("messages.upsert", map[string]any{
			"message": map[string]any{
				"id":        "m1",
				"from":      "+100",
				"text":      "hello",
				"timestamp": float64(123),
			},
			"instance": "acct2",
		})

		assert.Equal(t, "message", env.Type)
		assert.Equal(t, "m1", env.ID)
		assert.Equal(t, "+100", env.Actor)
		assert.Equal(t, "acct2", env.Instance)

		body, ok := env.Body.(map[string]any)
		require.True(t, ok)
		assert.Equal(t, "m1", body["id"])
		assert.Equal(t, "+100", body["from"])
		assert.Equal(t, "hello", body["snippet"])
		assert.Equal(t, float64(123), body["timestamp"])
		assert.Equal(t, 0, body["attachmentsCount"])
	})

	t.Run("snippet truncated to 256 characters", func(t *testing.T) {
		env := n.Normalize("messages.upsert", map[string]any{
			"message": map[string]any{
				"id":   "m2",
				"text": strings.Repeat("x", 1000),
			},
		})

		body := env.Body.(map[string]any)
		assert.Len(t, body["snippet"], 256)
	})

	t.Run("id and actor fallbacks", func(t *testing.T) {
		env := n.Normalize("messages.upsert", map[string]any{
			"message": map[string]any{
				"_id":    "m3",
				"author": "alice",
			},
		})
		assert.Equal(t, "m3", env.ID)
		assert.Equal(t, "alice", env.Actor)
	})

	t.Run("attachments counted", func(t *testing.T) {
		env := n.Normalize("messages.upsert", map[string]any{
			"message": map[string]any{
				"id":          "m4",
				"attachments": []any{"a", "b"},
			},
		})
		body := env.Body.(map[string]any)
		assert.Equal(t, 2, body["attachmentsCount"])
	})

	t.Run("non-object payload degrades", func(t *testing.T) {
		env := n.Normalize("messages.upsert", 42)
		assert.Equal(t, "normalization_failed", env.Meta["error"])
		assert.NotEmpty(t, env.Meta["detail"])
		assert.Nil(t, env.Body)
		assert.Equal(t, "unknown", env.Instance)
	})
}

func TestNormalizeContactsUpdate(t *testing.T) {
	n := newNormalizer()

	t.Run("phones capped to three, order preserving", func(t *testing.T) {
		env := n.Normalize("contacts.update", map[string]any{
			"id":     "c1",
			"name":   "Bob",
			"phones": []any{"1", "2", "3", "4", "5"},
			"emails": []any{"a@x", "b@x", "c@x"},
		})

		assert.Equal(t, "contact", env.Type)
		body := env.Body.(map[string]any)
		assert.Equal(t, []any{"1", "2", "3"}, body["phones"])
		assert.Equal(t, []any{"a@x", "b@x"}, body["emails"])
		assert.Equal(t, "Bob", body["name"])
	})

	t.Run("missing arrays yield empty slices", func(t *testing.T) {
		env := n.Normalize("contacts.update", map[string]any{"id": "c2"})
		body := env.Body.(map[string]any)
		assert.Equal(t, []any{}, body["phones"])
		assert.Equal(t, []any{}, body["emails"])
	})
}

func TestNormalizeChatsUpdate(t *testing.T) {
	n := newNormalizer()

	env := n.Normalize("chats.update", map[string]any{
		"chat": map[string]any{
			"id":           "g1",
			"subject":      "ops",
			"participants": []any{"a", "b", "c"},
		},
	})

	assert.Equal(t, "chat", env.Type)
	body := env.Body.(map[string]any)
	assert.Equal(t, "g1", body["id"])
	assert.Equal(t, "ops", body["title"])
	assert.Equal(t, 3, body["participantsCount"])
}

func TestNormalizeVerbatimEvents(t *testing.T) {
	n := newNormalizer()

	t.Run("qrcode.updated passes payload through", func(t *testing.T) {
		payload := map[string]any{"qr": "base64data...", "instance": "acct1"}
		env := n.Normalize("qrcode.updated", payload)

		assert.Equal(t, "qrcode", env.Type)
		assert.Equal(t, "acct1", env.Instance)
		assert.Equal(t, payload, env.Body)
		assert.Empty(t, env.Meta)
	})

	t.Run("connection.update passes payload through", func(t *testing.T) {
		payload := map[string]any{"state": "open", "instance": "acct9"}
		env := n.Normalize("connection.update", payload)

		assert.Equal(t, "connection", env.Type)
		assert.Equal(t, payload, env.Body)
	})
}

func TestNormalizeGenericFallback(t *testing.T) {
	n := newNormalizer()

	t.Run("more than six keys capped to six", func(t *testing.T) {
		payload := map[string]any{}
		for _, k := range []string{"a", "b", "c", "d", "e", "f", "g", "h"} {
			payload[k] = k
		}
		env := n.Normalize("something.unknown", payload)

		body := env.Body.(map[string]any)
		assert.Len(t, body, 6)
	})

	t.Run("type taken from payload", func(t *testing.T) {
		env := n.Normalize("x.y", map[string]any{"type": "presence"})
		assert.Equal(t, "presence", env.Type)

		env = n.Normalize("x.y", map[string]any{"eventType": "typing"})
		assert.Equal(t, "typing", env.Type)

		env = n.Normalize("x.y", map[string]any{"foo": 1})
		assert.Equal(t, "generic", env.Type)
	})

	t.Run("oversized string capped with ellipsis", func(t *testing.T) {
		env := n.Normalize("x.y", map[string]any{
			"blob": strings.Repeat("z", 600),
		})
		body := env.Body.(map[string]any)
		assert.Equal(t, strings.Repeat("z", 128)+"…", body["blob"])
	})

	t.Run("short string untouched", func(t *testing.T) {
		env := n.Normalize("x.y", map[string]any{"note": "hi"})
		body := env.Body.(map[string]any)
		assert.Equal(t, "hi", body["note"])
	})

	t.Run("arrays capped to first three", func(t *testing.T) {
		env := n.Normalize("x.y", map[string]any{
			"items": []any{1, 2, 3, 4, 5},
		})
		body := env.Body.(map[string]any)
		assert.Equal(t, []any{1, 2, 3}, body["items"])
	})

	t.Run("nested objects replaced with placeholder", func(t *testing.T) {
		env := n.Normalize("x.y", map[string]any{
			"nested": map[string]any{"deep": true},
		})
		body := env.Body.(map[string]any)
		assert.Equal(t, "[object]", body["nested"])
	})
}

func TestNormalizeIdempotent(t *testing.T) {
	n := newNormalizer()
	payload := map[string]any{
		"message":  map[string]any{"id": "m1", "text": "hi"},
		"instance": "acct1",
	}

	first := n.Normalize("messages.upsert", payload)
	second := n.Normalize("messages.upsert", payload)

	// Equal in every field except the normalization timestamp.
	second.ReceivedAt = first.ReceivedAt
	assert.Equal(t, first, second)
}

func TestNormalizeEnvelopeBasics(t *testing.T) {
	n := newNormalizer()
	env := n.Normalize("messages.upsert", map[string]any{"instance": "a"})

	assert.Equal(t, "1.0", env.Version)
	assert.Equal(t, "messages.upsert", env.Event)
	assert.False(t, env.ReceivedAt.IsZero())
	assert.NotNil(t, env.Meta)
	assert.Empty(t, env.Raw)
}

func TestNormalizeRawInclusion(t *testing.T) {
	t.Run("within budget", func(t *testing.T) {
		n := normalizer.New(config.RawConfig{Include: true, ByteLimit: 512})
		env := n.Normalize("x.y", map[string]any{"a": "b"})
		assert.Equal(t, `{"a":"b"}`, env.Raw)
	})

	t.Run("over budget appends truncation marker", func(t *testing.T) {
		n := normalizer.New(config.RawConfig{Include: true, ByteLimit: 16})
		env := n.Normalize("x.y", map[string]any{
			"a": strings.Repeat("b", 100),
		})
		assert.Len(t, env.Raw, 16+len("...(truncated)"))
		assert.True(t, strings.HasSuffix(env.Raw, "...(truncated)"))
	})

	t.Run("unserializable payload coerced", func(t *testing.T) {
		n := normalizer.New(config.RawConfig{Include: true, ByteLimit: 512})
		env := n.Normalize("x.y", map[string]any{"ch": make(chan int)})
		assert.NotEmpty(t, env.Raw)
	})
}
