package dto

import (
	"encoding/json"
	"testing"

	"github.com/printbridge/companion/internal/domain/printing"
	"github.com/printbridge/companion/internal/domain/shared"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDimension_UnmarshalJSON(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    float64
		wantErr bool
	}{
		{"number", `100`, 100, false},
		{"fraction", `101.6`, 101.6, false},
		{"numeric string", `"150"`, 150, false},
		{"garbage string", `"wide"`, 0, true},
		{"empty string", `""`, 0, true},
		{"boolean", `true`, 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var d Dimension
			err := json.Unmarshal([]byte(tt.input), &d)
			if tt.wantErr {
				require.Error(t, err)
				assert.True(t, shared.HasCode(err, printing.CodeInvalidJob))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, d.InexactFloat64())
		})
	}
}

func TestSendURLsRequest_ToSubmitRequest(t *testing.T) {
	t.Run("defaults the paper name", func(t *testing.T) {
		var req SendURLsRequest
		require.NoError(t, json.Unmarshal([]byte(
			`{"session":"s1","preview_url":"http://x/y","paper_width":100,"paper_height":"150"}`), &req))

		sub, err := req.ToSubmitRequest()
		require.NoError(t, err)
		assert.Equal(t, "s1", sub.Session)
		assert.Equal(t, "http://x/y", sub.PreviewURL)
		assert.Equal(t, printing.PaperSize{Name: "Custom", Width: 100, Height: 150}, sub.PaperSize)
	})

	t.Run("keeps a named paper", func(t *testing.T) {
		req := SendURLsRequest{
			PrintURL:    "http://x/p",
			PaperWidth:  NewDimension(210),
			PaperHeight: NewDimension(297),
			PaperSize:   "A4",
		}
		sub, err := req.ToSubmitRequest()
		require.NoError(t, err)
		assert.Equal(t, "A4", sub.PaperSize.Name)
	})

	t.Run("rejects non-positive edges", func(t *testing.T) {
		for _, w := range []float64{0, -10} {
			req := SendURLsRequest{PreviewURL: "http://x", PaperWidth: NewDimension(w), PaperHeight: NewDimension(100)}
			_, err := req.ToSubmitRequest()
			assert.ErrorIs(t, err, printing.ErrInvalidPaperSize)
		}
	})

	t.Run("rejects missing edges", func(t *testing.T) {
		req := SendURLsRequest{PreviewURL: "http://x"}
		_, err := req.ToSubmitRequest()
		assert.ErrorIs(t, err, printing.ErrInvalidPaperSize)
	})
}

func TestPrintRequest_ToDomain(t *testing.T) {
	var req PrintRequest
	require.NoError(t, json.Unmarshal([]byte(`{
		"url": "http://x/print",
		"paperSize": {"width": 100, "height": 150},
		"copies": 2,
		"printerName": "Zebra",
		"outputType": "printer",
		"rotate180": true,
		"side": "front"
	}`), &req))

	out, err := req.ToDomain()
	require.NoError(t, err)
	assert.Equal(t, "http://x/print", out.URL)
	assert.Equal(t, 100.0, out.PaperSize.Width)
	assert.Equal(t, 150.0, out.PaperSize.Height)
	assert.Equal(t, 2, out.Copies)
	assert.Equal(t, printing.OutputTypePrinter, out.OutputType)
	assert.Equal(t, printing.SideFront, out.Side)
	assert.True(t, out.Rotate180)

	req.PaperSize.Height = NewDimension(0)
	_, err = req.ToDomain()
	assert.ErrorIs(t, err, printing.ErrInvalidPaperSize)
}
