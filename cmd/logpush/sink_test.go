package main

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildSink_Invalid(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Sink.Type = "does-not-exist"
	s, err := buildSink(context.Background(), cfg)
	assert.Error(t, err)
	assert.Nil(t, s)

	cfg = DefaultConfig()
	cfg.Sink.Type = "opensearch"
	s, err = buildSink(context.Background(), cfg)
	assert.Error(t, err)
	assert.Nil(t, s)

	cfg = DefaultConfig()
	cfg.Sink.Type = "file"
	s, err = buildSink(context.Background(), cfg)
	assert.Error(t, err)
	assert.Nil(t, s)
}

func TestBuildSink_ConsoleStdoutWrites(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Sink.Type = "console"
	cfg.Sink.Console.Stream = "stdout"

	orig := os.Stdout
	r, w, err := os.Pipe()
	require.NoError(t, err)
	os.Stdout = w
	defer func() {
		os.Stdout = orig
		_ = r.Close()
		_ = w.Close()
	}()

	s, err := buildSink(context.Background(), cfg)
	require.NoError(t, err)
	assert.Equal(t, "console", s.Name())

	_, err = s.Put(context.Background(), []byte("c1"))
	require.NoError(t, err)
	_, err = s.Put(context.Background(), []byte("c2"))
	require.NoError(t, err)
	require.NoError(t, s.Close())

	_ = w.Close()
	data, _ := io.ReadAll(r)
	assert.Equal(t, "c1\nc2\n", string(data))
}

func TestBuildSink_FileWrites(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.log")
	cfg := DefaultConfig()
	cfg.Sink.Type = "file"
	cfg.Sink.File.Path = path

	s, err := buildSink(context.Background(), cfg)
	require.NoError(t, err)
	_, err = s.Put(context.Background(), []byte("f1"))
	require.NoError(t, err)
	_, err = s.Put(context.Background(), []byte("f2"))
	require.NoError(t, err)
	require.NoError(t, s.Close())

	b, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "f1\nf2\n", string(b))
}

func TestBuildSink_Firehose(t *testing.T) {
	t.Setenv("AWS_ACCESS_KEY_ID", "AKIDTEST")
	t.Setenv("AWS_SECRET_ACCESS_KEY", "secret")
	t.Setenv("AWS_EC2_METADATA_DISABLED", "true")

	s, err := buildSink(context.Background(), DefaultConfig())
	require.NoError(t, err)
	assert.Equal(t, "firehose", s.Name())
	assert.NoError(t, s.Close())
}

func TestSinkHost(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Sink.Host = "web-1"
	assert.Equal(t, "web-1", sinkHost(cfg))

	cfg.Sink.Host = ""
	if h, err := os.Hostname(); err == nil {
		assert.Equal(t, h, sinkHost(cfg))
	}
}
