package main

// GlobalFlags holds persistent flags shared by all commands.
type GlobalFlags struct {
	ConfigPath string
}

// TargetFlags selects what start/stop/status operate on.
type TargetFlags struct {
	All  bool
	JSON bool
}

// HistoryFlags selects what the history command shows.
type HistoryFlags struct {
	Limit int
	JSON  bool
}

// ServeFlags configures the HTTP serve mode.
type ServeFlags struct {
	Addr string
}
