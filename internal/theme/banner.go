package theme

import (
	"fmt"
	"io"
)

// Banner returns the CLI banner.
func Banner() string {
	const cyan = "\033[36m"
	const yellow = "\033[33m"
	const reset = "\033[0m"

	return "" +
		cyan + "  ___ _  _ ___   _   ___ ___\n" + reset +
		cyan + " / __| \\| / __| /_\\ | _ \\_ _|\n" + reset +
		cyan + " \\__ \\ .` \\__ \\/ _ \\|  _/| |\n" + reset +
		cyan + " |___/_|\\_|___/_/ \\_\\_| |___|\n" + reset +
		yellow + " ----------------------------\n" + reset +
		"  renren feeds, signed and normalized\n"
}

// PrintBanner writes the banner to w.
func PrintBanner(w io.Writer) {
	fmt.Fprint(w, Banner())
}
