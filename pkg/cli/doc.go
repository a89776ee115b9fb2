/*
Package cli provides helpers shared by the guardrail command.

Output Formatting:

Command results are printed as text, JSON, YAML or CSV. Values that
implement Table print as aligned columns in text mode and as rows in CSV
mode:

	formatter, err := cli.NewFormatter(cli.FormatJSON)
	if err != nil {
		return err
	}
	return formatter.FormatTo(cmd.OutOrStdout(), result)

Progress Reporting:

Long operations such as verifying every audit partition report progress on
stderr:

	progress := cli.NewProgressReporter(cmd.ErrOrStderr(), "partitions")
	progress.Start(int64(len(files)))
	for i, f := range files {
		verify(f)
		progress.Update(int64(i + 1))
	}
	progress.Finish()

Signal Handling:

For graceful shutdown on SIGINT/SIGTERM:

	ctx, stop := cli.SetupSignalHandler(cmd.Context())
	defer stop()

Exit Codes:

ExitCode maps an error returned by a command onto the process exit status,
so scripts can tell a broken audit chain (2) from a usage or configuration
error (1).
*/
package cli
