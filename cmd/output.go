package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"github.com/frahmantamala/taskdesk/internal/core/datamodel/message"
	"github.com/frahmantamala/taskdesk/internal/core/datamodel/notification"
	"github.com/frahmantamala/taskdesk/internal/core/datamodel/stats"
	"github.com/frahmantamala/taskdesk/internal/core/datamodel/task"
	"github.com/frahmantamala/taskdesk/internal/core/datamodel/user"
)

const timeLayout = "2006-01-02 15:04"

func jsonOutput() bool {
	return output == "json"
}

func writeJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func table(w io.Writer, header string, rows func(tw *tabwriter.Writer)) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, header)
	rows(tw)
	return tw.Flush()
}

func printTasks(w io.Writer, tasks []task.Task) error {
	if jsonOutput() {
		return writeJSON(w, tasks)
	}
	return table(w, "ID\tTITLE\tSTATUS\tASSIGNED TO\tASSIGNED\tFILES", func(tw *tabwriter.Writer) {
		for _, t := range tasks {
			fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%d\n",
				t.ID, t.Title, t.Status, t.AssignedTo.Name, formatTime(t.AssignedDate), len(t.Files)+len(t.CompletionFiles))
		}
	})
}

func printMessages(w io.Writer, messages []message.Message) error {
	if jsonOutput() {
		return writeJSON(w, messages)
	}
	return table(w, "ID\tFROM\tTO\tSUBJECT\tSENT\tREAD", func(tw *tabwriter.Writer) {
		for _, m := range messages {
			fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%t\n",
				m.ID, m.Sender.Name, m.Receiver.Name, m.Subject, formatTime(m.SentDate), m.Read)
		}
	})
}

func printEmployees(w io.Writer, employees []user.Employee) error {
	if jsonOutput() {
		return writeJSON(w, employees)
	}
	return table(w, "ID\tNAME\tEMAIL\tROLE", func(tw *tabwriter.Writer) {
		for _, e := range employees {
			fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", e.ID, e.Name, e.Email, e.Role)
		}
	})
}

func printStats(w io.Writer, s stats.Stats, completionRate int) error {
	if jsonOutput() {
		return writeJSON(w, struct {
			stats.Stats
			CompletionRate int `json:"completionRate"`
		}{s, completionRate})
	}
	return table(w, "EMPLOYEES\tTASKS\tCOMPLETED\tPENDING\tRATE", func(tw *tabwriter.Writer) {
		fmt.Fprintf(tw, "%d\t%d\t%d\t%d\t%d%%\n",
			s.TotalEmployees, s.TotalTasks, s.CompletedTasks, s.PendingTasks, completionRate)
	})
}

func printNotifications(w io.Writer, ns []notification.Notification) error {
	if jsonOutput() {
		return writeJSON(w, ns)
	}
	return table(w, "WHEN\tKIND\tTITLE\tBODY", func(tw *tabwriter.Writer) {
		for _, n := range ns {
			fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", formatTime(n.CreatedAt), n.Kind, n.Title, n.Body)
		}
	})
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return "-"
	}
	return t.Local().Format(timeLayout)
}
