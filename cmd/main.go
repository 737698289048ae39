// cmd/main.go
package main

import (
	"os"

	"go-bank-ledger/cli"
)

// @title           Go-Bank Ledger API
// @version         1.0
// @description     Ledger, loan servicing and penalty accrual API.

// @contact.name   API Support
// @contact.email  support@example.com

// @license.name   MIT
// @license.url    https://opensource.org/licenses/MIT

// @host      localhost:8080
// @BasePath  /
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
func main() {
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
