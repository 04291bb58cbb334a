package main

import (
	"context"
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/bryanwahyu/palm-oracle/internal/domain/reading"
)

var (
	historyPage   int
	historySize   int
	historyFormat string
	historyOut    string
	historyYes    bool
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Browse stored readings",
	Long: `Readings are stored when database.driver is mysql or postgres.
With the memory driver the history only lives as long as the process.`,
}

var historyListCmd = &cobra.Command{
	Use:   "list",
	Short: "List readings, newest first",
	Args:  cobra.NoArgs,
	RunE:  runHistoryList,
}

var historyShowCmd = &cobra.Command{
	Use:   "show ID",
	Short: "Show one reading",
	Args:  cobra.ExactArgs(1),
	RunE:  runHistoryShow,
}

var historyDeleteCmd = &cobra.Command{
	Use:   "delete ID",
	Short: "Delete one reading and its photo",
	Args:  cobra.ExactArgs(1),
	RunE:  runHistoryDelete,
}

var historyClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Delete every reading",
	Args:  cobra.NoArgs,
	RunE:  runHistoryClear,
}

func init() {
	historyListCmd.Flags().IntVar(&historyPage, "page", 1, "page number")
	historyListCmd.Flags().IntVar(&historySize, "size", 20, "page size (max 100)")
	historyShowCmd.Flags().StringVarP(&historyFormat, "format", "f", formatText, "text, json or html")
	historyShowCmd.Flags().StringVarP(&historyOut, "out", "o", "", "write the report to a file")
	historyClearCmd.Flags().BoolVarP(&historyYes, "yes", "y", false, "confirm")

	historyCmd.AddCommand(historyListCmd, historyShowCmd, historyDeleteCmd, historyClearCmd)
}

func cmdContext(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}

func runHistoryList(cmd *cobra.Command, args []string) error {
	ctx := cmdContext(cmd)
	app, err := buildApp(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer app.Close()

	res, err := app.History.List(ctx, historyPage, historySize)
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()
	if len(res.Data) == 0 {
		fmt.Fprintln(out, "no readings yet")
		return nil
	}
	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tCREATED\tAGE\tGENDER\tARCHETYPE")
	for _, r := range res.Data {
		fmt.Fprintf(tw, "%s\t%s\t%d\t%s\t%s\n", r.ID, r.CreatedAt.Format("2006-01-02 15:04"), r.Profile.Age, r.Profile.Gender, r.Analysis.ArchetypeName())
	}
	if err := tw.Flush(); err != nil {
		return err
	}
	fmt.Fprintf(out, "page %d/%d, %d total\n", res.Page, res.TotalPages, res.Total)
	return nil
}

func runHistoryShow(cmd *cobra.Command, args []string) error {
	ctx := cmdContext(cmd)
	app, err := buildApp(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer app.Close()

	id := reading.ReadingID(args[0])
	r, err := app.History.Get(ctx, id)
	if err != nil {
		return err
	}
	d, err := app.History.Report(ctx, id)
	if err != nil {
		return err
	}

	w, closeOut, err := openOut(historyOut, cmd.OutOrStdout())
	if err != nil {
		return err
	}
	if err := writeReport(w, historyFormat, d, r); err != nil {
		closeOut()
		return err
	}
	return closeOut()
}

func runHistoryDelete(cmd *cobra.Command, args []string) error {
	ctx := cmdContext(cmd)
	app, err := buildApp(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer app.Close()

	if err := app.History.Delete(ctx, reading.ReadingID(args[0])); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "deleted %s\n", args[0])
	return nil
}

func runHistoryClear(cmd *cobra.Command, args []string) error {
	if !historyYes {
		return fmt.Errorf("refusing to clear history without --yes")
	}
	ctx := cmdContext(cmd)
	app, err := buildApp(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer app.Close()

	n, err := app.History.Clear(ctx)
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "cleared %d readings\n", n)
	return nil
}
