package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeTickerFile(t *testing.T, content string) string {
	path := filepath.Join(t.TempDir(), "tickers.json")
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestReadTickerFileArray(t *testing.T) {
	path := writeTickerFile(t, `["VUSXX", " spy ", "bad!!", ""]`)

	tickers, err := readTickerFile(path)
	require.NoError(t, err)

	// invalid entries pass through so the batch can report them
	assert.Equal(t, []string{"VUSXX", "spy", "bad!!"}, tickers)
}

func TestReadTickerFileWrapped(t *testing.T) {
	path := writeTickerFile(t, `{"tickers": ["VFIAX", "SCHD"]}`)

	tickers, err := readTickerFile(path)
	require.NoError(t, err)
	assert.Equal(t, []string{"VFIAX", "SCHD"}, tickers)
}

func TestReadTickerFileBadJson(t *testing.T) {
	path := writeTickerFile(t, `not json`)

	_, err := readTickerFile(path)
	assert.Error(t, err)
}
