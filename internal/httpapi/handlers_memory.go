package httpapi

import (
	"io"
	"net/http"

	"github.com/edirooss/findex-server/internal/apierr"
	"github.com/edirooss/findex-server/internal/memory"
	"github.com/edirooss/findex-server/internal/wire"
	"github.com/gin-gonic/gin"
)

const maxMemoryBodyBytes = 16 << 20

// batchReadHandler implements `POST /indexes/{index}/batch_read`: decode the
// raw-address body, call B.batch_read scoped to the resolved index, encode
// the (tag, word) response, per spec.md §4.5's wire format.
func batchReadHandler(backend memory.IndexedADT) gin.HandlerFunc {
	return func(c *gin.Context) {
		body, err := io.ReadAll(http.MaxBytesReader(c.Writer, c.Request.Body, maxMemoryBodyBytes))
		if err != nil {
			apierr.Respond(c, apierr.Wrap(apierr.BadRequest, "reading request body", err))
			return
		}

		addresses, err := wire.DecodeBatchReadRequest(body)
		if err != nil {
			apierr.Respond(c, apierr.Wrap(apierr.BadRequest, "decoding batch_read request", err))
			return
		}

		indexID := currentIndexID(c)
		words, err := backend.BatchRead(c.Request.Context(), indexID, addresses)
		if err != nil {
			apierr.Respond(c, apierr.Wrap(apierr.MemoryError, "batch_read failed", err))
			return
		}

		c.Data(http.StatusOK, "application/octet-stream", wire.EncodeBatchReadResponse(words))
	}
}

// guardedWriteHandler implements `POST /indexes/{index}/guarded_write`.
func guardedWriteHandler(backend memory.IndexedADT, wordLength int) gin.HandlerFunc {
	return func(c *gin.Context) {
		body, err := io.ReadAll(http.MaxBytesReader(c.Writer, c.Request.Body, maxMemoryBodyBytes))
		if err != nil {
			apierr.Respond(c, apierr.Wrap(apierr.BadRequest, "reading request body", err))
			return
		}

		guardAddr, guardWord, bindings, err := wire.DecodeGuardedWriteRequest(body, wordLength)
		if err != nil {
			apierr.Respond(c, apierr.Wrap(apierr.BadRequest, "decoding guarded_write request", err))
			return
		}

		indexID := currentIndexID(c)
		prev, err := backend.GuardedWrite(c.Request.Context(), indexID, guardAddr, guardWord, bindings)
		if err != nil {
			apierr.Respond(c, apierr.Wrap(apierr.MemoryError, "guarded_write failed", err))
			return
		}

		c.Data(http.StatusOK, "application/octet-stream", wire.EncodeGuardedWriteResponse(prev))
	}
}
