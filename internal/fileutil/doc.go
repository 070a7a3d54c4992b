// Package fileutil finds the files cognitive works on.
//
// ScanDirectory walks a tree with extension, name-pattern and depth filters
// and returns sorted absolute paths. Hidden directories (".ai", ".git",
// ".cognitive") are always skipped so generated artifacts are never fed back
// into a scan. Non-fatal walk errors are collected in ScanResult.Errors
// instead of aborting the scan.
//
// ExpandPaths turns a mixed list of files and directories, as given on the
// command line, into the files to process:
//
//	files, err := fileutil.ExpandPaths([]string{"docs/reqs", "extra.md"}, fileutil.RequirementExtensions)
//
// Files named explicitly are kept even when their extension does not match.
package fileutil
