package main

import (
	"encoding/json"
	"fmt"
	"os"
	"strconv"

	"github.com/olekukonko/tablewriter"

	svcup "github.com/stackmind/svcup"
)

func printJSON(v any) {
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		_, _ = fmt.Fprintln(os.Stderr, "marshal:", err)
		return
	}
	fmt.Println(string(b))
}

func renderResults(results []svcup.Result, asJSON bool) {
	if asJSON {
		printJSON(jsonResults(results))
		return
	}
	table := tablewriter.NewWriter(os.Stdout)
	table.Header("Service", "Outcome", "PID", "Detail")
	for _, res := range results {
		detail := res.Detail
		if res.Err != nil {
			detail = res.Err.Error()
		}
		pid := ""
		if res.PID > 0 {
			pid = strconv.Itoa(res.PID)
		}
		table.Append(res.Name, string(res.Outcome), pid, detail)
	}
	_ = table.Render()
}

func renderStatuses(sts []svcup.Status, asJSON bool) {
	if asJSON {
		printJSON(sts)
		return
	}
	table := tablewriter.NewWriter(os.Stdout)
	table.Header("Service", "State", "Port", "PID")
	for _, st := range sts {
		pid := ""
		if st.PID > 0 {
			pid = strconv.Itoa(st.PID)
		}
		table.Append(st.Name, string(st.Class), strconv.Itoa(int(st.Port)), pid)
	}
	_ = table.Render()
}

func renderEvents(evs []svcup.Event, asJSON bool) {
	if asJSON {
		printJSON(evs)
		return
	}
	table := tablewriter.NewWriter(os.Stdout)
	table.Header("At", "Service", "Op", "Outcome", "PID", "Detail")
	for _, ev := range evs {
		pid := ""
		if ev.PID > 0 {
			pid = strconv.Itoa(ev.PID)
		}
		table.Append(ev.At.Local().Format("2006-01-02 15:04:05"), ev.Name, ev.Op, ev.Outcome, pid, ev.Detail)
	}
	_ = table.Render()
}

// jsonResults flattens Result errors into strings for output.
type jsonResult struct {
	Name    string `json:"name"`
	Outcome string `json:"outcome"`
	PID     int    `json:"pid,omitempty"`
	LogPath string `json:"log_path,omitempty"`
	Error   string `json:"error,omitempty"`
}

func jsonResults(results []svcup.Result) []jsonResult {
	out := make([]jsonResult, 0, len(results))
	for _, res := range results {
		jr := jsonResult{Name: res.Name, Outcome: string(res.Outcome), PID: res.PID, LogPath: res.LogPath}
		if res.Err != nil {
			jr.Error = res.Err.Error()
		}
		out = append(out, jr)
	}
	return out
}
