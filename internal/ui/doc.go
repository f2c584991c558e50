// Package ui provides semantic text formatting and terminal input for the
// cloud-encrypt CLI.
//
// Formatters render colorized output when the terminal supports it. When
// NO_COLOR is set or the terminal cannot show colors, text decorations are
// used instead:
//   - Code: `backticks`
//   - Provider: [brackets]
//   - Highlight: 'single quotes'
//   - Muted: (parentheses)
//
// Commands build their final spinner message with Done, Failed and Hint:
//
//	spinner.FinalMSG = ui.Done("Encrypted " + ui.FormatKeys(keys)) + "\n" +
//		ui.Hint("Commit " + ui.Path.Sprint(file))
package ui
