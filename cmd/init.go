package cmd

import (
	"github.com/openlar/openlar/repo"
)

// Init initializes a new openlar data directory at the provided path.
type Init struct {
	DataDir string `short:"d" long:"datadir" description:"Directory to store data"`
}

// Execute creates and initializes the data directory and database.
func (x *Init) Execute(args []string) error {
	cfg, err := repo.LoadConfig()
	if err != nil {
		return err
	}
	if x.DataDir != "" {
		cfg.DataDir = x.DataDir
	}

	r, err := repo.NewRepo(cfg.DataDir)
	if err != nil {
		return err
	}
	r.Close()

	log.Infof("openlar repo initialized at %s", cfg.DataDir)
	return nil
}
