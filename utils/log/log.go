package log

import (
	"os"

	"github.com/sirupsen/logrus"

	"github.com/neillwu/wanclient/utils/dotenv"
)

// global accessible logger
var (
	logger *logrus.Logger
	Log    *logrus.Entry
)

// This init function is only for testing cases, where the entry point is not
// main function. Unit test will fail with nil pointer dereference if we don't
// init here.
func init() {
	InitLogger()
}

func InitLogger() {
	logger = logrus.New()
	logger.SetOutput(os.Stderr)

	if os.Getenv("WANCLIENT_ENV") == dotenv.ProdEnv {
		logger.SetFormatter(&logrus.JSONFormatter{})
	}

	Log = logger.WithFields(
		logrus.Fields{"service": "wanclient", "is_development": os.Getenv("WANCLIENT_ENV") != dotenv.ProdEnv},
	)
}

// SetLevel adjusts global verbosity. The CLI maps -verbose onto this.
func SetLevel(level logrus.Level) {
	logger.SetLevel(level)
}
