package utils_test

import (
	"bufio"
	"bytes"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/temirov/repoaudit/internal/utils"
)

func TestFlushingWriterFlushesBufferedWriter(testInstance *testing.T) {
	var destination bytes.Buffer
	bufferedWriter := bufio.NewWriterSize(&destination, 4096)
	flushingWriter := utils.NewFlushingWriter(bufferedWriter)

	bytesWritten, writeError := flushingWriter.Write([]byte("# Repository Audit"))
	require.NoError(testInstance, writeError)
	require.Equal(testInstance, 18, bytesWritten)
	require.Equal(testInstance, "# Repository Audit", destination.String())

	require.Same(testInstance, flushingWriter, utils.NewFlushingWriter(flushingWriter))
	require.Nil(testInstance, utils.NewFlushingWriter(nil))
}
