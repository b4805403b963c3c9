package detail

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"orderdesk/dashboard/internal/domain"
)

func orderIDs(orders []domain.Order) []domain.ID {
	ids := make([]domain.ID, 0, len(orders))
	for _, o := range orders {
		ids = append(ids, o.ID)
	}
	return ids
}

func TestNormalize(t *testing.T) {
	tests := []struct {
		name     string
		payload  string
		expected []domain.ID
	}{
		{"single order", `{"order":{"id":1}}`, []domain.ID{"1"}},
		{"multiple orders keep backend order", `{"orders":[{"id":2},{"id":1}]}`, []domain.ID{"2", "1"}},
		{"empty object", `{}`, []domain.ID{}},
		{"null order", `{"order":null}`, []domain.ID{}},
		{"orders wins over order", `{"order":{"id":9},"orders":[{"id":1},{"id":2}]}`, []domain.ID{"1", "2"}},
		{"empty orders array wins", `{"order":{"id":9},"orders":[]}`, []domain.ID{}},
		{"orders not an array is ignored", `{"order":{"id":9},"orders":{"id":1}}`, []domain.ID{"9"}},
		{"null orders is ignored", `{"order":{"id":9},"orders":null}`, []domain.ID{"9"}},
		{"malformed elements skipped", `{"orders":[{"id":1},7,"x",{"id":3}]}`, []domain.ID{"1", "3"}},
		{"scalar order ignored", `{"order":"abc"}`, []domain.ID{}},
		{"single order with empty date kept", `{"order":{"_id":"o1","orderDate":""}}`, []domain.ID{"o1"}},
		{"string amount keeps every order", `{"orders":[{"_id":"a","totalAmount":"12.5"},{"_id":"b"}]}`, []domain.ID{"a", "b"}},
		{"bad field types keep order", `{"order":{"_id":"o2","customer":"n/a","items":{"x":1},"aiConfidence":"high"}}`, []domain.ID{"o2"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d, err := Normalize([]byte(tt.payload))
			require.NoError(t, err)
			require.NotNil(t, d.Orders)
			assert.Equal(t, tt.expected, orderIDs(d.Orders))
		})
	}
}

func TestNormalizeEmptyData(t *testing.T) {
	for _, payload := range []string{"", "null", "  "} {
		d, err := Normalize([]byte(payload))
		require.NoError(t, err)
		assert.Nil(t, d.Email)
		assert.NotNil(t, d.Orders)
		assert.Empty(t, d.Orders)
	}
}

func TestNormalizeInvalidJSON(t *testing.T) {
	d, err := Normalize([]byte(`[1,2`))
	assert.Error(t, err)
	assert.NotNil(t, d.Orders)
}

func TestNormalizeFillsSourceEmail(t *testing.T) {
	payload := `{
		"email": {"_id":"e1","trackingId":"TRK-1","from":"\"Jane Q. Doe\" <jane@x.com>","senderName":"Unknown","subject":"PO"},
		"order": {"id":"o1","emailId":"e1","customer":{"name":"Unknown"}}
	}`

	d, err := Normalize([]byte(payload))
	require.NoError(t, err)
	require.NotNil(t, d.Email)
	assert.Equal(t, "TRK-1", d.Email.TrackingID)
	require.Len(t, d.Orders, 1)
	assert.Equal(t, "Jane Q. Doe", domain.ResolveCustomerName(d.Orders[0]))
	assert.Equal(t, "jane@x.com", domain.ResolveCustomerEmail(d.Orders[0]))
}

func TestDecodeShape(t *testing.T) {
	decode := func(t *testing.T, payload string) OrderShape {
		t.Helper()
		var fields map[string]json.RawMessage
		require.NoError(t, json.Unmarshal([]byte(payload), &fields))
		return DecodeShape(fields)
	}

	assert.Equal(t, KindNone, decode(t, `{}`).Kind)
	assert.Equal(t, KindSingle, decode(t, `{"order":{"id":1}}`).Kind)
	assert.Equal(t, KindMultiple, decode(t, `{"orders":[]}`).Kind)
	assert.Equal(t, "multiple", KindMultiple.String())
	assert.Equal(t, []domain.Order{}, OrderShape{}.List())
}

func TestNormalizeMalformedFieldsUseDefaults(t *testing.T) {
	payload := `{"orders":[{"_id":"a","totalAmount":"12.5","orderDate":"","items":[{"description":"Widget","quantity":"2","unitPrice":"3.5"},7]}]}`

	d, err := Normalize([]byte(payload))
	require.NoError(t, err)
	require.Len(t, d.Orders, 1)

	o := d.Orders[0]
	assert.Equal(t, 12.5, o.TotalAmount)
	assert.True(t, o.OrderDate.IsZero())
	require.Len(t, o.Items, 1)
	assert.Equal(t, 2.0, o.Items[0].Quantity)
	assert.Equal(t, 7.0, o.Items[0].LineTotal())
}
