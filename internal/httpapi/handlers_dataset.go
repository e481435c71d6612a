package httpapi

import (
	"encoding/base64"
	"net/http"

	"github.com/edirooss/findex-server/internal/apierr"
	"github.com/edirooss/findex-server/internal/dataset"
	"github.com/edirooss/findex-server/pkg/jsonx"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// addEntriesRequest/addEntriesResponse and friends are the JSON shapes for
// the external-collaborator dataset routes (spec.md's route table lists
// these as "external collaborator, pass-through" — SPEC_FULL.md's
// Supplemented Features section gives them a minimal real implementation).
type addEntriesRequest struct {
	Entries []string `json:"entries"` // base64-encoded payloads
}

type addEntriesResponse struct {
	EntryIDs []string `json:"entry_ids"`
}

type entryIDsRequest struct {
	EntryIDs []string `json:"entry_ids"`
}

type getEntriesResponse struct {
	Entries []string `json:"entries"` // base64-encoded payloads
}

func addEntriesHandler(store dataset.Store) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req addEntriesRequest
		if err := jsonx.ParseStrictJSONBody(c.Request, &req); err != nil {
			apierr.Respond(c, apierr.Wrap(apierr.BadRequest, "invalid request body", err))
			return
		}

		entries := make([][]byte, len(req.Entries))
		for i, e := range req.Entries {
			b, err := base64.StdEncoding.DecodeString(e)
			if err != nil {
				apierr.Respond(c, apierr.Wrap(apierr.BadRequest, "invalid base64 entry", err))
				return
			}
			entries[i] = b
		}

		ids, err := store.AddEntries(c.Request.Context(), currentIndexID(c), entries)
		if err != nil {
			apierr.Respond(c, apierr.Wrap(apierr.Internal, "add_entries failed", err))
			return
		}

		out := make([]string, len(ids))
		for i, id := range ids {
			out[i] = id.String()
		}
		c.JSON(http.StatusOK, addEntriesResponse{EntryIDs: out})
	}
}

func getEntriesHandler(store dataset.Store) gin.HandlerFunc {
	return func(c *gin.Context) {
		ids, err := parseEntryIDs(c)
		if err != nil {
			apierr.Respond(c, err)
			return
		}

		entries, err := store.GetEntries(c.Request.Context(), currentIndexID(c), ids)
		if err != nil {
			apierr.Respond(c, apierr.Wrap(apierr.NotFound, "get_entries failed", err))
			return
		}

		out := make([]string, len(entries))
		for i, e := range entries {
			out[i] = base64.StdEncoding.EncodeToString(e)
		}
		c.JSON(http.StatusOK, getEntriesResponse{Entries: out})
	}
}

func deleteEntriesHandler(store dataset.Store) gin.HandlerFunc {
	return func(c *gin.Context) {
		ids, err := parseEntryIDs(c)
		if err != nil {
			apierr.Respond(c, err)
			return
		}

		if err := store.DeleteEntries(c.Request.Context(), currentIndexID(c), ids); err != nil {
			apierr.Respond(c, apierr.Wrap(apierr.Internal, "delete_entries failed", err))
			return
		}
		c.Status(http.StatusNoContent)
	}
}

func parseEntryIDs(c *gin.Context) ([]uuid.UUID, error) {
	var req entryIDsRequest
	if err := jsonx.ParseStrictJSONBody(c.Request, &req); err != nil {
		return nil, apierr.Wrap(apierr.BadRequest, "invalid request body", err)
	}
	ids := make([]uuid.UUID, len(req.EntryIDs))
	for i, s := range req.EntryIDs {
		id, err := uuid.Parse(s)
		if err != nil {
			return nil, apierr.Wrap(apierr.BadRequest, "invalid entry id", err)
		}
		ids[i] = id
	}
	return ids, nil
}
