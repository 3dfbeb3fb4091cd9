package main

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/canonmap/canonmap/pkg/client"
)

var (
	Version   = "v1.0.0"
	Commit    = "unknown"
	BuildTime = "unknown"
)

const usage = `Usage: canonmap [-endpoint URL] <command>

Commands:
  validate              Run the governance rule set against the graph
  tasks                 List due review tasks, stalest first
  pick                  Pick the product most in need of attention
  routine               Show today's checklist and streaks
  check <task-id>       Toggle a daily or weekly checklist item
  review <node> <field> Mark a status field reviewed today
  ack <reason>          Acknowledge each unacknowledged error interactively
  add <CPD|CCD> <name>  Add a node to the graph
  remove <node-id>      Remove a node and its links
  export <type> [fmt]   Export completions or acks as csv (default) or json
  version               Print version information
`

func main() {
	endpoint := os.Getenv("CANONMAP_ENDPOINT")
	args := os.Args[1:]
	if len(args) >= 2 && args[0] == "-endpoint" {
		endpoint = args[1]
		args = args[2:]
	}
	if len(args) < 1 {
		fmt.Print(usage)
		os.Exit(1)
	}

	c := client.NewClient(endpoint)
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	var err error
	switch args[0] {
	case "validate":
		err = runValidate(ctx, c)
	case "tasks":
		err = runTasks(ctx, c)
	case "pick":
		err = runPick(ctx, c)
	case "routine":
		err = runRoutine(ctx, c)
	case "check":
		err = runCheck(ctx, c, args[1:])
	case "review":
		err = runReview(ctx, c, args[1:])
	case "ack":
		err = runAck(ctx, c, args[1:])
	case "add":
		err = runAdd(ctx, c, args[1:])
	case "remove":
		err = runRemove(ctx, c, args[1:])
	case "export":
		err = runExport(ctx, c, args[1:])
	case "version":
		fmt.Printf("canonmap %s (%s, built %s)\n", Version, Commit, BuildTime)
	default:
		fmt.Print(usage)
		os.Exit(1)
	}

	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		if strings.Contains(err.Error(), "daemon unreachable") {
			fmt.Fprintln(os.Stderr, "Is canonmap-d running?")
		}
		os.Exit(1)
	}
}

func runValidate(ctx context.Context, c *client.Client) error {
	report, err := c.Validate(ctx)
	if err != nil {
		return err
	}

	for _, f := range report.Errors {
		if f.Acknowledged {
			fmt.Printf("ERROR (ack: %s): %s\n", f.Reason, f.Message)
		} else {
			fmt.Printf("ERROR: %s\n", f.Message)
		}
	}
	for _, f := range report.Warnings {
		fmt.Printf("WARN:  %s\n", f.Message)
	}
	fmt.Printf("\n%d errors (%d acknowledged), %d warnings\n",
		report.Summary.Errors, report.Summary.AcknowledgedErrors, report.Summary.Warnings)

	if report.Vacation.Active {
		fmt.Println("\nVacation prep is active:")
		for _, gap := range report.Vacation.Gaps {
			fmt.Printf("  GAP: %s\n", gap)
		}
	}

	if report.Summary.Errors > report.Summary.AcknowledgedErrors {
		os.Exit(2)
	}
	return nil
}

func runTasks(ctx context.Context, c *client.Client) error {
	tasks, err := c.DueTasks(ctx)
	if err != nil {
		return err
	}
	if len(tasks) == 0 {
		fmt.Println("No review tasks due.")
		return nil
	}
	for _, t := range tasks {
		age := fmt.Sprintf("%dd old", t.AgeDays)
		if t.NeverCompleted {
			age = "never reviewed"
		}
		fmt.Printf("%-50s %s\n", t.Text, age)
	}
	return nil
}

func runPick(ctx context.Context, c *client.Client) error {
	pick, err := c.Pick(ctx)
	if err != nil {
		return err
	}
	fmt.Printf("Work on: %s (score %d)\n", pick.Node.Name, pick.Score)
	for _, r := range pick.Reasons {
		fmt.Printf("  - %s\n", r)
	}
	return nil
}

func runRoutine(ctx context.Context, c *client.Client) error {
	state, err := c.Routine(ctx)
	if err != nil {
		return err
	}

	doneToday := 0
	for _, v := range state.Daily {
		if v {
			doneToday++
		}
	}
	fmt.Printf("Today (%s): %d reviewed, threshold %d\n", state.TodayKey, doneToday, state.Threshold)
	fmt.Printf("Streaks: %d days, %d weeks\n\n", state.DailyStreak, state.WeeklyStreak)

	fmt.Printf("Week of %s:\n", state.WeekKey)
	for _, wt := range state.WeeklyTasks {
		mark := " "
		if state.Weekly[wt.ID] {
			mark = "x"
		}
		fmt.Printf("  [%s] %s %s\n", mark, wt.ID, wt.Text)
	}

	if len(state.DueTasks) > 0 {
		fmt.Println("\nDue for review:")
		for _, t := range state.DueTasks {
			mark := " "
			if state.Daily[t.ID] {
				mark = "x"
			}
			fmt.Printf("  [%s] %s\n", mark, t.Text)
		}
	}

	if state.Vacation.Active {
		fmt.Println("\nVacation prep is active:")
		for _, gap := range state.Vacation.Gaps {
			fmt.Printf("  GAP: %s\n", gap)
		}
	}
	return nil
}

func runCheck(ctx context.Context, c *client.Client, args []string) error {
	if len(args) != 1 {
		return fmt.Errorf("usage: canonmap check <task-id>")
	}
	taskID := args[0]

	action := "toggle_daily"
	if strings.HasPrefix(taskID, "W") && len(taskID) == 2 {
		action = "toggle_weekly"
	}
	state, err := c.Act(ctx, client.RoutineAction{Action: action, TaskID: taskID})
	if err != nil {
		return err
	}

	checked := state.Daily[taskID]
	if action == "toggle_weekly" {
		checked = state.Weekly[taskID]
	}
	if checked {
		fmt.Printf("Checked %s\n", taskID)
	} else {
		fmt.Printf("Unchecked %s\n", taskID)
	}
	return nil
}

func runReview(ctx context.Context, c *client.Client, args []string) error {
	if len(args) != 2 {
		return fmt.Errorf("usage: canonmap review <node-id> <field-key>")
	}
	if _, err := c.Act(ctx, client.RoutineAction{
		Action:   "complete_field",
		NodeID:   args[0],
		FieldKey: args[1],
	}); err != nil {
		return err
	}
	fmt.Printf("Reviewed %s on %s\n", args[1], args[0])
	return nil
}

func runAck(ctx context.Context, c *client.Client, args []string) error {
	if len(args) != 1 {
		return fmt.Errorf("usage: canonmap ack <reason>")
	}
	reason := args[0]

	report, err := c.Validate(ctx)
	if err != nil {
		return err
	}

	pending := make([]client.Finding, 0, len(report.Errors))
	for _, f := range report.Errors {
		if !f.Acknowledged {
			pending = append(pending, f)
		}
	}
	if len(pending) == 0 {
		fmt.Println("Nothing to acknowledge.")
		return nil
	}

	reader := bufio.NewReader(os.Stdin)
	for _, f := range pending {
		fmt.Printf("ERROR: %s\nAcknowledge? [y/N] ", f.Message)
		line, _ := reader.ReadString('\n')
		if strings.TrimSpace(strings.ToLower(line)) != "y" {
			continue
		}
		if err := c.Acknowledge(ctx, f.Message, reason); err != nil {
			return err
		}
		fmt.Println("Acknowledged.")
	}
	return nil
}

func runAdd(ctx context.Context, c *client.Client, args []string) error {
	if len(args) < 2 {
		return fmt.Errorf("usage: canonmap add <CPD|CCD> <name>")
	}
	nodeType := strings.ToUpper(args[0])
	name := strings.Join(args[1:], " ")

	commit, err := c.CreateNode(ctx, client.NodeRequest{Type: nodeType, Name: name})
	if err != nil {
		return err
	}
	fmt.Printf("Added %s: %s\n", nodeType, name)
	if commit != nil {
		fmt.Printf("Committed: %s\n", commit.HTMLURL)
	}
	return nil
}

func runExport(ctx context.Context, c *client.Client, args []string) error {
	if len(args) < 1 || len(args) > 2 {
		return fmt.Errorf("usage: canonmap export <completions|acks> [csv|json]")
	}
	format := "csv"
	if len(args) == 2 {
		format = args[1]
	}
	data, err := c.Export(ctx, args[0], format)
	if err != nil {
		return err
	}
	os.Stdout.Write(data)
	return nil
}

func runRemove(ctx context.Context, c *client.Client, args []string) error {
	if len(args) != 1 {
		return fmt.Errorf("usage: canonmap remove <node-id>")
	}
	commit, err := c.DeleteNode(ctx, args[0])
	if err != nil {
		return err
	}
	fmt.Printf("Removed %s\n", args[0])
	if commit != nil {
		fmt.Printf("Committed: %s\n", commit.HTMLURL)
	}
	return nil
}
