package mcpserver

import (
	"errors"

	"github.com/mark3labs/mcp-go/server"
	"go.uber.org/zap"

	"github.com/JamesPrial/mindful-journal/internal/dataroot"
	"github.com/JamesPrial/mindful-journal/internal/journal"
	"github.com/JamesPrial/mindful-journal/internal/lists"
)

// Server identity reported during MCP initialization.
const (
	ServerName    = "mindful-journal"
	ServerVersion = "1.0.0"
)

// Deps are the stores the tools operate on. Logger may be nil.
type Deps struct {
	Root    *dataroot.Root
	Journal *journal.Store
	Lists   *lists.Service
	Logger  *zap.Logger
}

// NewHandlers validates deps and returns the tool handlers.
func NewHandlers(deps Deps) (*Handlers, error) {
	if deps.Root == nil || deps.Journal == nil || deps.Lists == nil {
		return nil, errors.New("mcpserver: root, journal and lists are required")
	}
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handlers{
		root:    deps.Root,
		journal: deps.Journal,
		lists:   deps.Lists,
		logger:  logger,
	}, nil
}

// Tools pairs every tool definition with its handler.
func (h *Handlers) Tools() []server.ServerTool {
	return []server.ServerTool{
		// Journal tools
		{Tool: listJournalEntriesTool(), Handler: h.HandleListJournalEntries},
		{Tool: saveJournalEntryTool(), Handler: h.HandleSaveJournalEntry},
		{Tool: mergeJournalTool(), Handler: h.HandleMergeJournal},

		// Goals and tasks tools
		{Tool: getItemsTool(), Handler: h.HandleGetItems},
		{Tool: addItemTool(), Handler: h.HandleAddItem},
		{Tool: updateItemTool(), Handler: h.HandleUpdateItem},
		{Tool: deleteItemTool(), Handler: h.HandleDeleteItem},
		{Tool: completeItemTool(), Handler: h.HandleCompleteItem},
		{Tool: reactivateItemTool(), Handler: h.HandleReactivateItem},

		{Tool: systemInfoTool(), Handler: h.HandleSystemInfo},
	}
}

// NewServer creates and configures a new MCP server with every tool registered.
func NewServer(deps Deps) (*server.MCPServer, error) {
	h, err := NewHandlers(deps)
	if err != nil {
		return nil, err
	}

	s := server.NewMCPServer(
		ServerName,
		ServerVersion,
		server.WithToolCapabilities(true),
		server.WithRecovery(),
	)
	s.AddTools(h.Tools()...)
	return s, nil
}
