package api_test

import (
	"fmt"

	"github.com/cdstail/cdstail/internal/api"
)

// ExampleIsTerminalStatus shows which statuses end a step log stream
func ExampleIsTerminalStatus() {
	for _, status := range []string{api.StatusBuilding, api.StatusWaiting, api.StatusFail, api.StatusSuccess, ""} {
		fmt.Printf("%q %v\n", status, api.IsTerminalStatus(status))
	}

	// Output:
	// "Building" false
	// "Waiting" false
	// "Fail" true
	// "Success" true
	// "" true
}
