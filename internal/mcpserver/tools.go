// Package mcpserver exposes the journal, goals and tasks stores as MCP tools.
package mcpserver

import (
	"github.com/mark3labs/mcp-go/mcp"
)

func kindParam() mcp.ToolOption {
	return mcp.WithString("kind",
		mcp.Required(),
		mcp.Enum("goals", "tasks"),
		mcp.Description("Which list to operate on: goals or tasks"))
}

func idParam(desc string) mcp.ToolOption {
	return mcp.WithString("id",
		mcp.Required(),
		mcp.Description(desc))
}

// listJournalEntriesTool returns a tool definition for listing journal entries.
func listJournalEntriesTool() mcp.Tool {
	return mcp.NewTool("list_journal_entries",
		mcp.WithDescription("List every journal entry, most recently updated first. Each entry has id, type, content, created and updated (milliseconds since epoch)."),
	)
}

// saveJournalEntryTool returns a tool definition for creating or overwriting a journal entry.
func saveJournalEntryTool() mcp.Tool {
	return mcp.NewTool("save_journal_entry",
		mcp.WithDescription("Create or overwrite a journal entry. Saving with an existing type and id replaces its content."),
		mcp.WithString("content",
			mcp.Description("Entry text, stored verbatim")),
		mcp.WithString("type",
			mcp.Description("Entry type, used as a folder name (defaults to 'personal')")),
		mcp.WithString("id",
			mcp.Description("Entry id, used as the file name (defaults to the current time in milliseconds)")),
		mcp.WithNumber("updated",
			mcp.Description("Modification time to record, in milliseconds since epoch")),
	)
}

// mergeJournalTool returns a tool definition for concatenating one type's entries.
func mergeJournalTool() mcp.Tool {
	return mcp.NewTool("merge_journal",
		mcp.WithDescription("Concatenate all entries of one journal type in natural file-name order, separated by a rule line."),
		mcp.WithString("type",
			mcp.Required(),
			mcp.Description("Journal type to merge")),
	)
}

// getItemsTool returns a tool definition for reading a goals or tasks list.
func getItemsTool() mcp.Tool {
	return mcp.NewTool("get_items",
		mcp.WithDescription("Return the active and completed items of a list."),
		kindParam(),
	)
}

// addItemTool returns a tool definition for appending an active item.
func addItemTool() mcp.Tool {
	return mcp.NewTool("add_item",
		mcp.WithDescription("Append an item to the active bucket of a list. The item is stored as given; duplicate ids are allowed."),
		kindParam(),
		mcp.WithObject("item",
			mcp.Required(),
			mcp.Description("Item object; its 'id' field identifies it in later calls")),
	)
}

// updateItemTool returns a tool definition for replacing an item.
func updateItemTool() mcp.Tool {
	return mcp.NewTool("update_item",
		mcp.WithDescription("Replace the first item with the given id, searching active then completed."),
		kindParam(),
		idParam("Id of the item to replace"),
		mcp.WithObject("item",
			mcp.Required(),
			mcp.Description("Replacement item object")),
	)
}

// deleteItemTool returns a tool definition for removing an item.
func deleteItemTool() mcp.Tool {
	return mcp.NewTool("delete_item",
		mcp.WithDescription("Remove every item with the given id from the active bucket, or from completed when none is active."),
		kindParam(),
		idParam("Id of the item to delete"),
	)
}

// completeItemTool returns a tool definition for moving an item to completed.
func completeItemTool() mcp.Tool {
	return mcp.NewTool("complete_item",
		mcp.WithDescription("Move an active item to completed, stamping completed_at."),
		kindParam(),
		idParam("Id of the active item"),
	)
}

// reactivateItemTool returns a tool definition for moving an item back to active.
func reactivateItemTool() mcp.Tool {
	return mcp.NewTool("reactivate_item",
		mcp.WithDescription("Move a completed item back to active, removing completed_at."),
		kindParam(),
		idParam("Id of the completed item"),
	)
}

// systemInfoTool returns a tool definition for data folder statistics.
func systemInfoTool() mcp.Tool {
	return mcp.NewTool("system_info",
		mcp.WithDescription("Report the data folder path with the count and total size of list files."),
	)
}
