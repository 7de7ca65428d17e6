package ledger

import "errors"

var ErrOrderNotRecorded = errors.New("order not recorded in ledger")

type Credentials struct {
	Host              string
	Port              int
	User              string
	Password          string
	DBName            string
	MigrationsDirPath string
}
