// Command dbusgen reads D-Bus interface introspection XML and emits Go
// source implementing the server (adaptor) and/or client (proxy) side of
// each interface it describes.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/creachadair/command"
	"github.com/creachadair/flax"
	"github.com/kr/pretty"

	"github.com/dbusgen/dbusgen/gen/client"
	"github.com/dbusgen/dbusgen/gen/dialect"
	"github.com/dbusgen/dbusgen/gen/server"
	"github.com/dbusgen/dbusgen/introspect"
	"github.com/dbusgen/dbusgen/serviceconfig"
)

func main() {
	root := &command.C{
		Name:  "dbusgen",
		Usage: "command args...",
		Commands: []*command.C{
			{
				Name:     "generate",
				Usage:    "generate [options] interface.xml...",
				Help:     "Generate server and/or client Go stubs from introspection XML.",
				SetFlags: command.Flags(flax.MustBind, &generateArgs),
				Run:      runGenerate,
			},
			{
				Name:  "validate",
				Usage: "validate interface.xml...",
				Help:  "Check introspection XML for naming and structural errors without generating output.",
				Run:   runValidate,
			},
			{
				Name:  "dump",
				Usage: "dump interface.xml...",
				Help:  "Parse introspection XML and print the resulting data model.",
				Run:   runDump,
			},
			command.HelpCommand(nil),
			command.VersionCommand(),
		},
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()
	env := root.NewEnv(nil).SetContext(ctx)
	command.RunOrFail(env, os.Args[1:])
}

var generateArgs struct {
	ServiceConfig string `flag:"service-config,Service configuration file (YAML)"`
	PackageName   string `flag:"package,default=dbusgen,Go package name for generated output"`
	ServerOut     string `flag:"server-out,Output file for server (adaptor) stubs"`
	ClientOut     string `flag:"client-out,Output file for client (proxy) stubs"`
}

func parseAndValidate(paths []string) ([]*introspect.Document, error) {
	var docs []*introspect.Document
	for _, path := range paths {
		b, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading %s: %w", path, err)
		}
		doc, err := introspect.Parse(b)
		if err != nil {
			return nil, fmt.Errorf("parsing %s: %w", path, err)
		}
		if err := introspect.Validate(doc, path, b); err != nil {
			return nil, fmt.Errorf("validating %s: %w", path, err)
		}
		docs = append(docs, doc)
	}
	return docs, nil
}

func runGenerate(env *command.Env) error {
	if len(env.Args) == 0 {
		return env.Usagef("generate requires at least one introspection XML file")
	}

	var sc serviceconfig.Config
	if generateArgs.ServiceConfig != "" {
		c, err := serviceconfig.Load(generateArgs.ServiceConfig)
		if err != nil {
			return fmt.Errorf("loading service config: %w", err)
		}
		sc = *c
	}
	pkg := generateArgs.PackageName
	if sc.PackageName != "" {
		pkg = sc.PackageName
	}

	docs, err := parseAndValidate(env.Args)
	if err != nil {
		return err
	}

	d := dialect.NewGo()

	if generateArgs.ServerOut != "" {
		f, err := os.Create(generateArgs.ServerOut)
		if err != nil {
			return fmt.Errorf("creating %s: %w", generateArgs.ServerOut, err)
		}
		defer f.Close()
		for _, doc := range docs {
			src, err := server.GenerateFile(pkg, doc, d)
			if err != nil {
				return fmt.Errorf("generating server stubs for %s: %w", doc.Name, err)
			}
			if _, err := f.WriteString(src); err != nil {
				return fmt.Errorf("writing %s: %w", generateArgs.ServerOut, err)
			}
		}
	}

	if generateArgs.ClientOut != "" {
		f, err := os.Create(generateArgs.ClientOut)
		if err != nil {
			return fmt.Errorf("creating %s: %w", generateArgs.ClientOut, err)
		}
		defer f.Close()
		if sc.ServiceName != "" {
			if _, err := fmt.Fprintf(f, "// DefaultServiceName is the D-Bus service name given in the generator's\n// service configuration.\nconst DefaultServiceName = %q\n\n", sc.ServiceName); err != nil {
				return fmt.Errorf("writing %s: %w", generateArgs.ClientOut, err)
			}
		}
		for _, doc := range docs {
			src, err := client.GenerateFile(pkg, doc, d)
			if err != nil {
				return fmt.Errorf("generating client stubs for %s: %w", doc.Name, err)
			}
			if _, err := f.WriteString(src); err != nil {
				return fmt.Errorf("writing %s: %w", generateArgs.ClientOut, err)
			}
		}
		if sc.ObjectManager.Name != "" {
			src, err := client.GenerateObjectManager(sc.ObjectManager, d)
			if err != nil {
				return fmt.Errorf("generating object manager proxy: %w", err)
			}
			if _, err := f.WriteString(src); err != nil {
				return fmt.Errorf("writing %s: %w", generateArgs.ClientOut, err)
			}
		}
	}

	return nil
}

func runValidate(env *command.Env) error {
	if len(env.Args) == 0 {
		return env.Usagef("validate requires at least one introspection XML file")
	}
	if _, err := parseAndValidate(env.Args); err != nil {
		return err
	}
	fmt.Printf("%d file(s) OK\n", len(env.Args))
	return nil
}

func runDump(env *command.Env) error {
	if len(env.Args) == 0 {
		return env.Usagef("dump requires at least one introspection XML file")
	}
	docs, err := parseAndValidate(env.Args)
	if err != nil {
		return err
	}
	for _, doc := range docs {
		fmt.Printf("%# v\n", pretty.Formatter(doc))
	}
	return nil
}
