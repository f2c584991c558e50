// Package logger provides leveled output for cloud-encrypt commands.
//
// The logger supports multiple verbosity levels controlled by command-line
// flags. Output carries a colored prefix from fatih/color.
//
// # Verbosity Levels
//
//   - --verbose: shows info and warning messages
//   - --debug: shows everything, including error details
//
// Without flags only WarnfAlways output is shown; user-facing results are
// printed by the command itself.
//
// # Log Methods
//
//	Logger.Infof()           // Shown with --verbose or --debug
//	Logger.Debugf()          // Shown only with --debug
//	Logger.Warnf()           // Shown with --verbose or --debug
//	Logger.WarnfAlways()     // Always shown
//	Logger.Errorf()          // Shown with --debug
//	Logger.ErrorfAndReturn() // Errorf, then returns the message as an error
//
// Commands create the logger in the root PersistentPreRun. Library packages
// under internal/ never log; they return errors.
package logger
