package ingest

import (
	"bytes"
	"context"
	"errors"
	"io"
	"io/fs"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/TFMV/topicweb/models"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleDoc = `{
	"nodes": [
		{"id": "bacteriophage", "label": "Bacteriophage", "category": "virology", "count": 42, "size": 30},
		{"id": "metagenomics", "label": "Metagenomics", "category": "methods", "count": 17, "size": 14},
		{"id": "soil", "label": "Soil", "category": "geology", "count": 8}
	],
	"edges": [
		{"source": "bacteriophage", "target": "metagenomics", "weight": 14},
		{"source": "metagenomics", "target": "soil", "weight": 6}
	],
	"stats": {"total_publications": 57, "years": 12}
}`

func TestJSONProcessor(t *testing.T) {
	t.Run("parses a valid document", func(t *testing.T) {
		ds, err := NewJSONProcessor(false).ProcessData([]byte(sampleDoc))
		require.NoError(t, err)

		assert.Len(t, ds.Nodes, 3)
		assert.Len(t, ds.Edges, 2)
		assert.Equal(t, 57, ds.Stats.TotalPublications)
		assert.Equal(t, models.CategoryOther, ds.Nodes[2].Category)
	})

	t.Run("rejects broken json", func(t *testing.T) {
		_, err := NewJSONProcessor(false).ProcessData([]byte(`{"nodes": [`))
		assert.ErrorIs(t, err, ErrMalformed)
	})

	t.Run("rejects a document without nodes", func(t *testing.T) {
		_, err := NewJSONProcessor(false).ProcessData([]byte(`{"edges": []}`))
		assert.ErrorIs(t, err, ErrMalformed)
	})

	t.Run("rejects negative counts", func(t *testing.T) {
		_, err := NewJSONProcessor(false).ProcessData([]byte(`{"nodes": [{"id": "a", "count": -1}]}`))
		assert.ErrorIs(t, err, ErrInvalid)
	})

	t.Run("rejects non-positive weights", func(t *testing.T) {
		doc := `{"nodes": [{"id": "a", "count": 9}, {"id": "b", "count": 9}],
			"edges": [{"source": "a", "target": "b", "weight": 0}]}`
		_, err := NewJSONProcessor(false).ProcessData([]byte(doc))
		assert.ErrorIs(t, err, ErrInvalid)
	})

	t.Run("rejects missing ids", func(t *testing.T) {
		_, err := NewJSONProcessor(false).ProcessData([]byte(`{"nodes": [{"label": "x", "count": 1}]}`))
		require.ErrorIs(t, err, ErrInvalid)
		assert.Contains(t, err.Error(), "required")
	})

	t.Run("rejects duplicate ids", func(t *testing.T) {
		_, err := NewJSONProcessor(false).ProcessData([]byte(`{"nodes": [{"id": "a"}, {"id": "a"}]}`))
		require.ErrorIs(t, err, ErrInvalid)
		assert.Contains(t, err.Error(), "duplicate")
	})

	t.Run("strict mode rejects unknown fields", func(t *testing.T) {
		_, err := NewJSONProcessor(true).ProcessData([]byte(`{"nodes": [], "extra": 1}`))
		assert.ErrorIs(t, err, ErrMalformed)
	})
}

func TestParseSource(t *testing.T) {
	src, err := ParseSource("data/keyword_network.json")
	require.NoError(t, err)
	assert.IsType(t, FileSource{}, src)

	src, err = ParseSource("https://example.org/data/keyword_network.json")
	require.NoError(t, err)
	assert.IsType(t, &HTTPSource{}, src)

	src, err = ParseSource("s3://site-assets/data/keyword_network.json")
	require.NoError(t, err)
	require.IsType(t, &S3Source{}, src)
	assert.Equal(t, "site-assets", src.(*S3Source).Bucket)
	assert.Equal(t, "data/keyword_network.json", src.(*S3Source).Key)

	_, err = ParseSource("s3://bucket-only")
	assert.Error(t, err)

	_, err = ParseSource("")
	assert.Error(t, err)
}

func TestLoaderFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "network.json")
	require.NoError(t, os.WriteFile(path, []byte(sampleDoc), 0o644))

	ds, err := NewLoader(FileSource{Path: path}, nil).Load(context.Background())
	require.NoError(t, err)
	assert.Equal(t, path, ds.Source)
	assert.Len(t, ds.Nodes, 3)
}

func TestLoaderMissingFile(t *testing.T) {
	ds, err := NewLoader(FileSource{Path: filepath.Join(t.TempDir(), "missing.json")}, nil).Load(context.Background())
	assert.ErrorIs(t, err, ErrFetch)
	assert.ErrorIs(t, err, fs.ErrNotExist)
	assert.Nil(t, ds)
}

func TestLoaderFromHTTP(t *testing.T) {
	t.Run("ok", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			io.WriteString(w, sampleDoc)
		}))
		defer srv.Close()

		ds, err := NewLoader(NewHTTPSource(srv.URL, srv.Client()), nil).Load(context.Background())
		require.NoError(t, err)
		assert.Len(t, ds.Edges, 2)
	})

	t.Run("server error", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, "boom", http.StatusInternalServerError)
		}))
		defer srv.Close()

		ds, err := NewLoader(NewHTTPSource(srv.URL, srv.Client()), nil).Load(context.Background())
		assert.ErrorIs(t, err, ErrFetch)
		assert.Nil(t, ds)
	})

	t.Run("deadline", func(t *testing.T) {
		release := make(chan struct{})
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			select {
			case <-release:
			case <-r.Context().Done():
			}
		}))
		defer srv.Close()
		defer close(release)

		ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
		defer cancel()

		ds, err := NewLoader(NewHTTPSource(srv.URL, srv.Client()), nil).Load(ctx)
		assert.ErrorIs(t, err, ErrFetch)
		assert.ErrorIs(t, err, context.DeadlineExceeded)
		assert.Nil(t, ds)
	})

	t.Run("malformed body", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			io.WriteString(w, "<html>not json</html>")
		}))
		defer srv.Close()

		ds, err := NewLoader(NewHTTPSource(srv.URL, srv.Client()), nil).Load(context.Background())
		assert.ErrorIs(t, err, ErrMalformed)
		assert.Nil(t, ds)
	})
}

type fakeS3 struct {
	body string
	err  error
	in   *s3.GetObjectInput
}

func (f *fakeS3) GetObject(_ context.Context, in *s3.GetObjectInput, _ ...func(*s3.Options)) (*s3.GetObjectOutput, error) {
	f.in = in
	if f.err != nil {
		return nil, f.err
	}
	return &s3.GetObjectOutput{Body: io.NopCloser(bytes.NewBufferString(f.body))}, nil
}

func TestLoaderFromS3(t *testing.T) {
	client := &fakeS3{body: sampleDoc}
	src := &S3Source{Bucket: "assets", Key: "network.json", Client: client}

	ds, err := NewLoader(src, nil).Load(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "s3://assets/network.json", ds.Source)
	assert.Equal(t, "assets", *client.in.Bucket)

	client.err = errors.New("access denied")
	_, err = NewLoader(src, nil).Load(context.Background())
	assert.ErrorIs(t, err, ErrFetch)
}
