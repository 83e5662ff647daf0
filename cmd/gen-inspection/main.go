package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"

	"github.com/charmbracelet/log"

	"github.com/seitarof/gen-inspection/internal/classify"
	"github.com/seitarof/gen-inspection/internal/cli"
	"github.com/seitarof/gen-inspection/internal/inspector"
	"github.com/seitarof/gen-inspection/internal/repository"
	"github.com/seitarof/gen-inspection/internal/resolver"
	"github.com/seitarof/gen-inspection/internal/scope"
	"github.com/seitarof/gen-inspection/internal/writer"
)

var version = "dev"

func main() {
	if len(os.Args) > 1 && os.Args[1] == "install" {
		install(os.Args[2:])
		return
	}

	cfg, err := cli.ParseArgs(os.Args[1:])
	if err != nil {
		log.Fatal(err)
	}
	if cfg.ShowVersion {
		fmt.Println(version)
		return
	}
	cli.SetupLogging(cfg.Verbose)

	local, err := repository.NewLocal(cfg.Repository)
	if err != nil {
		log.Fatal(err)
	}
	remotes := make([]*repository.Remote, 0, len(cfg.Remotes))
	for _, url := range cfg.Remotes {
		remotes = append(remotes, repository.NewRemote(url))
	}

	rules := append(classify.DefaultRules(), classify.NewNamedRule(cfg.Primitives...))
	r := resolver.New(repository.NewSystem(local, remotes...))
	i := inspector.New(classify.New(rules...))
	w := writer.New(writer.NewJSONEncoder(), writer.NewFileWriter())

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	runner := cli.NewRunner(r, cli.DefaultScopeRunner(scope.Options{}), i, w)
	if err := runner.Run(ctx, cfg); err != nil {
		stop()
		log.Fatal(err)
	}
}

func install(args []string) {
	cfg, err := cli.ParseInstallArgs(args)
	if err != nil {
		log.Fatal(err)
	}
	cli.SetupLogging(cfg.Verbose)
	if err := cli.Install(cfg); err != nil {
		log.Fatal(err)
	}
}
