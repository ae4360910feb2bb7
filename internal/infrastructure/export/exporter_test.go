package export

import (
	"bytes"
	"context"
	"errors"
	"io"
	"os"
	"path"
	"path/filepath"
	"testing"

	"github.com/salesbi/backend/internal/domain/quality"
	"github.com/salesbi/backend/internal/domain/report"
	"github.com/salesbi/backend/internal/infrastructure/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

type memRemote struct {
	objects map[string][]byte
	err     error
}

func (m *memRemote) Open(_ context.Context, key string) (io.ReadCloser, error) {
	return io.NopCloser(bytes.NewReader(m.objects[key])), nil
}

func (m *memRemote) Upload(_ context.Context, key string, body io.Reader, _ string) error {
	if m.err != nil {
		return m.err
	}
	data, err := io.ReadAll(body)
	if err != nil {
		return err
	}
	m.objects[key] = data
	return nil
}

func (m *memRemote) OutputKey(name string) string {
	return path.Join("exports", name)
}

func TestExporter_ExportQuality(t *testing.T) {
	dir := t.TempDir()
	remote := &memRemote{objects: map[string][]byte{}}
	e := NewExporter(storage.NewLocalObjectStorage(dir), remote, zaptest.NewLogger(t))

	r := &quality.Report{
		TotalRows:    1,
		TopCountries: []quality.CountryCount{{Country: "France", RowCount: 1}},
	}
	names, err := e.ExportQuality(context.Background(), r)
	require.NoError(t, err)
	assert.Equal(t, []string{FileQualityReport, FileTopCountries, FileTopProducts}, names)

	local, err := os.ReadFile(filepath.Join(dir, FileTopCountries))
	require.NoError(t, err)
	assert.Equal(t, "country,rows\nFrance,1\n", string(local))
	assert.Equal(t, local, remote.objects["exports/top_countries.csv"])
	assert.Len(t, remote.objects, 3)
}

func TestExporter_ExportKPIs_LocalOnly(t *testing.T) {
	dir := t.TempDir()
	e := NewExporter(storage.NewLocalObjectStorage(dir), nil, nil)

	names, err := e.ExportKPIs(context.Background(), &report.KPIs{})
	require.NoError(t, err)
	assert.Equal(t, []string{FileDailyKPIs, FileProductPerformance, FileCustomerRFM}, names)

	for _, n := range names {
		assert.FileExists(t, filepath.Join(dir, n))
	}
}

func TestExporter_UploadFailureStops(t *testing.T) {
	dir := t.TempDir()
	remote := &memRemote{objects: map[string][]byte{}, err: errors.New("bucket gone")}
	e := NewExporter(storage.NewLocalObjectStorage(dir), remote, zaptest.NewLogger(t))

	names, err := e.ExportKPIs(context.Background(), &report.KPIs{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "bucket gone")
	assert.Empty(t, names)
	assert.FileExists(t, filepath.Join(dir, FileDailyKPIs))
	assert.NoFileExists(t, filepath.Join(dir, FileProductPerformance))
}
