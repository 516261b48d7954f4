package dom

// Names shared by the core, the injected stylesheet and the page bridge.
const (
	RemovedAttr         = "data-purgedom-removed"
	RemovedSelectorAttr = "data-purgedom-removed-selector"

	// RemovedSelector matches every element carrying the removed marker.
	RemovedSelector = `[` + RemovedAttr + `="1"]`

	StyleID               = "__purgedom_cleaner_style__"
	CleanModeClass        = "__purgedom_clean_mode_active__"
	UndoModeClass         = "__purgedom_undo_mode_active__"
	CleanHighlightClass   = "__purgedom_cleaner_highlight__"
	RestoreHighlightClass = "__purgedom_restore_highlight__"

	UndoPanelID           = "__purgedom_undo_panel__"
	UndoPanelLabelClass   = "__purgedom_undo_panel_label__"
	RestoreAllButtonClass = "__purgedom_restore_all_button__"
)
