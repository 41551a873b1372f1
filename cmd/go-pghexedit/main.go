package main

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/alecthomas/kong"
	"github.com/dustin/go-humanize"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	pghexedit "github.com/wilhasse/go-pghexedit"
	"github.com/wilhasse/go-pghexedit/emit"
	"github.com/wilhasse/go-pghexedit/format"
	"github.com/wilhasse/go-pghexedit/page"
	"github.com/wilhasse/go-pghexedit/schema"
	"github.com/wilhasse/go-pghexedit/segment"
)

// CLI defines the command-line interface using Kong
type CLI struct {
	File   string `arg:"" help:"Relation segment file. .zst, .xz and .lz4 copies are decompressed on the fly." type:"path"`
	Output string `short:"o" help:"Write the tag document here instead of stdout." type:"path"`

	Start    uint32 `short:"R" help:"First block to decode."`
	End      int64  `default:"-1" help:"Last block to decode, inclusive."`
	Checksum string `short:"k" help:"Verify page checksums: always, nonzero or off."`
	SkipLeaf bool   `short:"l" name:"skip-leaf" help:"Tag B-Tree leaf pages as a whole."`
	LSN      string `short:"z" name:"lsn" help:"Skip blocks whose LSN is older than this X/X value."`

	SegmentSize   int64 `short:"s" help:"Segment size in bytes."`
	SegmentNumber int64 `short:"n" default:"-1" help:"Segment number, instead of the one in the file name."`

	AttrList      string `short:"D" name:"attrlist" help:"Attribute list: length,name,align triples."`
	DDL           string `name:"ddl" help:"CREATE TABLE statement, or @file to read one."`
	FormatVersion string `name:"format-version" help:"Server major version the files were written by (9.4 to 17)."`

	Config   string `type:"path" help:"YAML configuration file."`
	LogLevel string `name:"log-level" help:"Diagnostic log level."`
	SQLite   string `name:"sqlite" type:"path" help:"Also write annotations into this SQLite database."`
}

func main() {
	var cli CLI
	kong.Parse(&cli,
		kong.Name("go-pghexedit"),
		kong.Description("Annotate PostgreSQL relation files for wxHexEditor"),
		kong.UsageOnError(),
	)
	os.Exit(run(&cli, os.Stdout, os.Stderr))
}

func run(cli *CLI, stdout, stderr io.Writer) int {
	log := logrus.New()
	log.SetOutput(stderr)

	cfg := &Config{}
	if cli.Config != "" {
		var err error
		if cfg, err = LoadConfig(cli.Config); err != nil {
			log.WithError(err).Error("cannot load configuration")
			return 1
		}
	}
	opts, level, err := buildOptions(cli, cfg)
	if err != nil {
		log.WithError(err).Error("invalid options")
		return 1
	}
	log.SetLevel(level)

	r, err := segment.Open(cli.File)
	if err != nil {
		log.WithError(err).Error("cannot open segment")
		return 1
	}
	defer r.Close()
	if fi, err := os.Stat(cli.File); err == nil {
		log.WithFields(logrus.Fields{"file": cli.File, "size": humanize.IBytes(uint64(fi.Size()))}).Debug("input")
	}

	out := stdout
	if cli.Output != "" {
		f, err := os.Create(cli.Output)
		if err != nil {
			log.WithError(fmt.Errorf("%w: %v", format.ErrFileOpen, err)).Error("cannot create output")
			return 1
		}
		defer f.Close()
		out = f
	}

	runID := uuid.NewString()
	pre := emit.Preamble{Created: time.Now(), Options: opts.String(), RunID: runID}
	xmlSink, err := emit.NewXMLSink(out, cli.File, pre)
	if err != nil {
		log.WithError(err).Error("cannot write output")
		return 1
	}
	var sink emit.Sink = xmlSink
	if cli.SQLite != "" {
		db, err := emit.OpenSQLite(cli.SQLite, cli.File, pre)
		if err != nil {
			log.WithError(err).Error("cannot open SQLite sink")
			xmlSink.Close()
			return 1
		}
		sink = emit.Tee(xmlSink, db)
	}

	dec, err := pghexedit.NewDecoder(sink, log.WithField("run", runID), opts)
	if err != nil {
		log.WithError(err).Error("invalid options")
		sink.Close()
		return 1
	}
	runErr := dec.Run(r)
	if err := dec.Close(); err != nil {
		log.WithError(err).Error("cannot finish output")
		return 1
	}
	if runErr != nil {
		log.WithError(runErr).Error("decoding stopped")
		return 1
	}
	if dec.Failed() {
		return 1
	}
	return 0
}

// buildOptions merges the command line over the configuration file.
func buildOptions(cli *CLI, cfg *Config) (pghexedit.Options, logrus.Level, error) {
	var opts pghexedit.Options

	level, err := logrus.ParseLevel(firstNonEmpty(cli.LogLevel, cfg.LogLevel, "info"))
	if err != nil {
		return opts, level, fmt.Errorf("%w: %v", format.ErrOptionSyntax, err)
	}

	opts.Start = cli.Start
	if cli.End >= 0 {
		opts.End, opts.HasEnd = uint32(cli.End), true
	}
	if opts.Checksum, err = pghexedit.ParseChecksumMode(firstNonEmpty(cli.Checksum, cfg.Checksum)); err != nil {
		return opts, level, err
	}
	opts.SkipLeaf = cli.SkipLeaf || cfg.SkipLeaf
	if cli.LSN != "" {
		if opts.LSN, err = page.ParseLSN(cli.LSN); err != nil {
			return opts, level, err
		}
		opts.HasLSN = true
	}

	opts.SegmentSize = cfg.SegmentSize
	if cli.SegmentSize != 0 {
		opts.SegmentSize = cli.SegmentSize
	}
	if cli.SegmentNumber >= 0 {
		opts.SegmentNumber, opts.HasSegmentNumber = uint32(cli.SegmentNumber), true
	}

	if v := firstNonEmpty(cli.FormatVersion, cfg.FormatVersion); v != "" {
		if opts.Version, err = format.ParseVersion(v); err != nil {
			return opts, level, err
		}
	}

	td, err := tableDef(cli, cfg)
	if err != nil {
		return opts, level, err
	}
	if td != nil {
		opts.Attributes = td.Attributes
	}
	return opts, level, opts.Validate()
}

// tableDef picks the attribute source: --attrlist, then --ddl, then the
// configuration file.
func tableDef(cli *CLI, cfg *Config) (*schema.TableDef, error) {
	switch {
	case cli.AttrList != "":
		return schema.ParseAttrList(cli.AttrList)
	case strings.HasPrefix(cli.DDL, "@"):
		return schema.ParseTableDefFromSQLFile(cli.DDL[1:])
	case cli.DDL != "":
		return schema.ParseTableDefFromSQL(cli.DDL)
	}
	return cfg.TableDef()
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}
