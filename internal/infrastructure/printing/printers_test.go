package printing

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestListPrinters_Unix(t *testing.T) {
	runner := newFakeRunner()
	runner.outputs["lpstat -e"] = []byte("Office\nLabel_Printer\n\n")
	runner.outputs["lpstat -d"] = []byte("system default destination: Label_Printer\n")

	printers, err := ListPrinters(context.Background(), runner, "linux")
	require.NoError(t, err)
	assert.Equal(t, []Printer{
		{Name: "Office"},
		{Name: "Label_Printer", IsDefault: true},
	}, printers)
}

func TestListPrinters_UnixWithoutDefault(t *testing.T) {
	runner := newFakeRunner()
	runner.outputs["lpstat -e"] = []byte("Office\n")

	printers, err := ListPrinters(context.Background(), runner, "darwin")
	require.NoError(t, err)
	require.Len(t, printers, 1)
	assert.False(t, printers[0].IsDefault)
}

func TestParseWindowsPrinters(t *testing.T) {
	out := []byte("False\tMicrosoft Print to PDF\r\nTrue\tZebra ZD420\r\n\r\nmalformed\r\n")
	printers := parseWindowsPrinters(out)
	assert.Equal(t, []Printer{
		{Name: "Microsoft Print to PDF"},
		{Name: "Zebra ZD420", IsDefault: true},
	}, printers)
}

func TestListPrinters_Error(t *testing.T) {
	runner := newFakeRunner()
	runner.failing["lpstat"] = errors.New("lpstat: not found")

	_, err := ListPrinters(context.Background(), runner, "linux")
	assert.Error(t, err)
}
