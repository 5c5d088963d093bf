package display

import (
	"fmt"
	"io"

	"github.com/backmassage/campaigndelta/internal/term"
)

const banner = `                            _             _     _      _ _
  ___ __ _ _ __ ___  _ __  __ _(_) __ _ _ __ | | __| | ___| | |_ __ _
 / __/ _` + "`" + ` | '_ ` + "`" + ` _ \| '_ \/ _` + "`" + ` | |/ _` + "`" + ` | '_ \/ _` + "`" + ` |/ _ \ | __/ _` + "`" + ` |
| (_| (_| | | | | | | |_) | (_| | | (_| | | | | (_| |  __/ | || (_| |
 \___\__,_|_| |_| |_| .__/ \__,_|_|\__, |_| |_|\__,_|\___|_|\__\__,_|
                    |_|            |___/
`

// PrintBanner writes the ASCII art banner to w; magenta when colors are on.
func PrintBanner(w io.Writer) {
	fmt.Fprint(w, term.Paint(term.Magenta, banner))
	if term.Enabled() {
		fmt.Fprintln(w)
	}
}
