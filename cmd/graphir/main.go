// graphir lists the registered graph operators and runs graph passes on YAML graph descriptions.
package main

import (
	"fmt"
	"os"

	"github.com/gomlx/graphir/internal/cli"
	"k8s.io/klog/v2"
)

func main() {
	defer klog.Flush()
	if err := cli.NewRootCommand().Execute(); err != nil {
		_, _ = fmt.Fprintf(os.Stderr, "Error: %+v\n", err)
		klog.Flush()
		os.Exit(1)
	}
}
