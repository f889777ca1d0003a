// Package dupsweep finds byte-identical files under a directory and removes
// redundant copies while keeping exactly one original per duplicate set.
//
// # Core API
//
// The main entry point is Engine:
//
//	log := dupsweep.NewLogger(os.Stderr, 1, true)
//	engine := dupsweep.NewEngine(dupsweep.EngineOptions{
//		Defaults: dupsweep.DefaultScanOptions(),
//		Logger:   log,
//	})
//
// # Scanning
//
//	result, err := engine.Scan(ctx, "/data", engine.DefaultScanOptions())
//	for _, group := range result.Groups {
//		fmt.Printf("%s: keep %s, %d copies\n", group.Digest.Hex(), group.Original, len(group.Files)-1)
//	}
//
// Per-file problems never fail a scan; they are listed in result.Errors.
// Only a missing or non-directory root returns an *InvalidRootError.
//
// # Deleting
//
//	report := engine.DeleteDuplicates(ctx, result)
//	if !report.OK() {
//		// some targets were skipped or failed; see report.Outcomes
//	}
//
// Every target is checked again before removal. Files that vanished, were
// replaced or changed since the scan are skipped, as are whole groups whose
// original is gone.
//
// # Configuration
//
// LoadConfig reads an ini file with [scan], [delete], [verbose], [output] and
// [server] sections:
//
//	cfg, err := dupsweep.LoadConfig("/home/user/.config/dupsweep")
//	engine := dupsweep.NewEngineFromConfig(cfg, log)
package dupsweep
