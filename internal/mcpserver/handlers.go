package mcpserver

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
	"go.uber.org/zap"

	"github.com/JamesPrial/mindful-journal/internal/dataroot"
	"github.com/JamesPrial/mindful-journal/internal/intake"
	"github.com/JamesPrial/mindful-journal/internal/journal"
	"github.com/JamesPrial/mindful-journal/internal/lists"
	"github.com/JamesPrial/mindful-journal/internal/storage"
)

// Handlers implements every tool against the stores. Tool failures are
// reported as error results, never as Go errors, so the client sees the
// message.
type Handlers struct {
	root    *dataroot.Root
	journal *journal.Store
	lists   *lists.Service
	logger  *zap.Logger
}

// HandleListJournalEntries returns all entries as JSON.
func (h *Handlers) HandleListJournalEntries(ctx context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	if err := h.root.Ensure(); err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Failed to prepare data folder: %v", err)), nil
	}
	entries, err := h.journal.List(ctx)
	if err != nil {
		h.logger.Error("failed to list journal entries", zap.Error(err))
		return mcp.NewToolResultError(fmt.Sprintf("Failed to list journal entries: %v", err)), nil
	}
	return jsonResult(entries)
}

// HandleSaveJournalEntry creates or overwrites one entry.
// Parameters:
//   - content (string, optional)
//   - type (string, optional): defaults to personal
//   - id (string or number, optional): defaults to the current time in ms
//   - updated (number, optional): modification time in ms
func (h *Handlers) HandleSaveJournalEntry(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	in, err := intake.JournalFromArgs(request.GetArguments())
	if err != nil {
		if errors.Is(err, intake.ErrEmptyBody) {
			return mcp.NewToolResultError("Missing required parameters"), nil
		}
		return mcp.NewToolResultError(err.Error()), nil
	}
	if err := h.root.Ensure(); err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Failed to prepare data folder: %v", err)), nil
	}

	res, err := h.journal.Save(ctx, in.SaveRequest())
	if err != nil {
		if !errors.Is(err, journal.ErrInvalidEntry) {
			h.logger.Error("failed to save journal entry", zap.Error(err))
		}
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(fmt.Sprintf("Entry saved successfully\nID: %s\nType: %s\nPath: %s", res.ID, res.Type, res.Path)), nil
}

// HandleMergeJournal returns the merged text of one journal type.
func (h *Handlers) HandleMergeJournal(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	entryType, err := request.RequireString("type")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	var buf bytes.Buffer
	n, err := h.journal.Merge(ctx, entryType, &buf)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Failed to merge %q entries: %v", entryType, err)), nil
	}
	if n == 0 {
		return mcp.NewToolResultText(fmt.Sprintf("No %q entries to merge.", entryType)), nil
	}
	return mcp.NewToolResultText(buf.String()), nil
}

// HandleGetItems returns {active, completed} for a kind.
func (h *Handlers) HandleGetItems(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	kind, errResult := requireKind(request)
	if errResult != nil {
		return errResult, nil
	}
	out, err := h.lists.Get(ctx, kind)
	if err != nil {
		return h.listFailure(err), nil
	}
	return jsonResult(out)
}

// HandleAddItem appends an item to the active bucket.
func (h *Handlers) HandleAddItem(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	kind, errResult := requireKind(request)
	if errResult != nil {
		return errResult, nil
	}
	item, errResult := requireItem(request)
	if errResult != nil {
		return errResult, nil
	}
	if err := h.lists.Add(ctx, kind, item); err != nil {
		return h.listFailure(err), nil
	}
	return jsonResult(map[string]any{"success": true, "item": item})
}

// HandleUpdateItem replaces the first item matching id.
func (h *Handlers) HandleUpdateItem(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	kind, errResult := requireKind(request)
	if errResult != nil {
		return errResult, nil
	}
	id, err := request.RequireString("id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	item, errResult := requireItem(request)
	if errResult != nil {
		return errResult, nil
	}
	if err := h.lists.Update(ctx, kind, id, item); err != nil {
		return h.listFailure(err), nil
	}
	return mcp.NewToolResultText(fmt.Sprintf("Updated %s item %s", kind, id)), nil
}

// HandleDeleteItem removes items matching id.
func (h *Handlers) HandleDeleteItem(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return h.byID(ctx, request, "Deleted", h.lists.Delete)
}

// HandleCompleteItem moves an item from active to completed.
func (h *Handlers) HandleCompleteItem(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return h.byID(ctx, request, "Completed", h.lists.Complete)
}

// HandleReactivateItem moves an item from completed to active.
func (h *Handlers) HandleReactivateItem(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return h.byID(ctx, request, "Reactivated", h.lists.Reactivate)
}

// HandleSystemInfo reports data folder statistics.
func (h *Handlers) HandleSystemInfo(_ context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	info, err := h.root.Info()
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Failed to read data folder: %v", err)), nil
	}
	return jsonResult(info)
}

func (h *Handlers) byID(ctx context.Context, request mcp.CallToolRequest, verb string,
	op func(context.Context, storage.Kind, string) error) (*mcp.CallToolResult, error) {
	kind, errResult := requireKind(request)
	if errResult != nil {
		return errResult, nil
	}
	id, err := request.RequireString("id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if err := op(ctx, kind, id); err != nil {
		return h.listFailure(err), nil
	}
	return mcp.NewToolResultText(fmt.Sprintf("%s %s item %s", verb, kind, id)), nil
}

func (h *Handlers) listFailure(err error) *mcp.CallToolResult {
	switch {
	case errors.Is(err, lists.ErrNotFound):
		return mcp.NewToolResultError("Item not found")
	case errors.Is(err, lists.ErrInvalidItem):
		return mcp.NewToolResultError("No data provided")
	default:
		h.logger.Error("list operation failed", zap.Error(err))
		return mcp.NewToolResultError(fmt.Sprintf("Failed to save data: %v", err))
	}
}

func requireKind(request mcp.CallToolRequest) (storage.Kind, *mcp.CallToolResult) {
	raw, err := request.RequireString("kind")
	if err != nil {
		return "", mcp.NewToolResultError(err.Error())
	}
	kind, err := storage.ParseKind(raw)
	if err != nil {
		return "", mcp.NewToolResultError(fmt.Sprintf("Invalid data type: %s", raw))
	}
	return kind, nil
}

func requireItem(request mcp.CallToolRequest) (storage.Item, *mcp.CallToolResult) {
	raw, ok := request.GetArguments()["item"].(map[string]any)
	if !ok {
		return nil, mcp.NewToolResultError("Missing required parameter: item (object)")
	}
	if len(raw) == 0 {
		return nil, mcp.NewToolResultError("No data provided")
	}
	return storage.Item(raw), nil
}

func jsonResult(v any) (*mcp.CallToolResult, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Failed to encode result: %v", err)), nil
	}
	return mcp.NewToolResultText(string(data)), nil
}
