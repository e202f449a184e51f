// Package codegen turns an intermediate project model into the files of a
// Fiber web service: server entry point, database connection, router,
// models and CRUD handlers.
package codegen

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/dave/jennifer/jen"
	"github.com/olimci/fiberforge/pkg/ipm"
	"github.com/olimci/fiberforge/pkg/manifest"
	"github.com/olimci/fiberforge/pkg/schema"
)

// Logical names of the project level files.
const (
	NameManifest   = "project.manifest"
	NameReadme     = "project.readme"
	NameServer     = "server.entry"
	NameConnection = "db.connection"
	NameRouter     = "router"

	OwnerProject = "project"
)

// ModelName is the logical name of e's model file.
func ModelName(e *ipm.Entity) string { return e.Name.Snake + ".model" }

// RoutesName is the logical name of e's handler file.
func RoutesName(e *ipm.Entity) string { return e.Name.Snake + ".routes" }

const (
	fiberModule  = "github.com/gofiber/fiber/v2"
	loggerPkg    = "github.com/gofiber/fiber/v2/middleware/logger"
	pgxStdlibPkg = "github.com/jackc/pgx/v5/stdlib"
	mysqlPkg     = "github.com/go-sql-driver/mysql"
	mongoPkg     = "go.mongodb.org/mongo-driver/mongo"
	mongoOptPkg  = "go.mongodb.org/mongo-driver/mongo/options"
	bsonPkg      = "go.mongodb.org/mongo-driver/bson"
	primitivePkg = "go.mongodb.org/mongo-driver/bson/primitive"
	sqlPkg       = "database/sql"
)

// Generator emits project files. It is safe for concurrent use.
type Generator struct {
	opts *options
}

func New(opts ...Option) *Generator {
	return &Generator{opts: defaultOptions().apply(opts...)}
}

// Generate returns the project files in emission order: go.mod, README,
// main.go, the database connection, the router, then a model and a handler
// file per entity in p's entity order. The same p always yields the same
// bytes. A missing mapping entry yields a *MappingError.
func (g *Generator) Generate(p *ipm.Project) ([]manifest.File, error) {
	gen := &generation{
		opts:    g.opts,
		project: p,
		models:  make(map[*ipm.Entity]*model, len(p.Entities)),
	}
	return gen.run()
}

type generation struct {
	opts    *options
	project *ipm.Project
	models  map[*ipm.Entity]*model
}

func (g *generation) run() ([]manifest.File, error) {
	for _, e := range g.project.Entities {
		m, err := g.buildModel(e)
		if err != nil {
			return nil, err
		}
		g.models[e] = m
	}

	files := make([]manifest.File, 0, 5+2*len(g.project.Entities))
	add := func(name, owner, path string, policy manifest.Policy, content []byte) {
		files = append(files, manifest.File{
			Name:    name,
			Owner:   owner,
			Path:    path,
			Content: content,
			Policy:  policy,
		})
	}

	gomod, err := g.goMod()
	if err != nil {
		return nil, err
	}
	add(NameManifest, OwnerProject, "go.mod", manifest.CreateOnly, gomod)

	readme, err := g.readme()
	if err != nil {
		return nil, err
	}
	add(NameReadme, OwnerProject, "README.md", manifest.Overwrite, readme)

	project := []struct {
		name, path string
		build      func() *jen.File
	}{
		{NameServer, "main.go", g.mainFile},
		{NameConnection, "database/connection.go", g.connectionFile},
		{NameRouter, "router/router.go", g.routerFile},
	}
	for _, pf := range project {
		content, err := render(pf.build(), pf.path)
		if err != nil {
			return nil, err
		}
		add(pf.name, OwnerProject, pf.path, manifest.Overwrite, content)
	}

	for _, e := range g.project.Entities {
		m := g.models[e]

		modelPath := "models/" + e.Name.Snake + ".go"
		content, err := render(g.modelFile(m), modelPath)
		if err != nil {
			return nil, err
		}
		add(ModelName(e), e.Name.Original, modelPath, manifest.Overwrite, content)

		routesPath := "handlers/" + e.Name.Snake + ".go"
		content, err = render(g.handlerFile(m), routesPath)
		if err != nil {
			return nil, err
		}
		add(RoutesName(e), e.Name.Original, routesPath, manifest.Overwrite, content)
	}

	return files, nil
}

func (g *generation) sql() bool {
	return g.project.Database.SQL()
}

func (g *generation) mongo() bool {
	return g.project.Database == schema.MongoDB
}

func (g *generation) pkgPath(name string) string {
	return g.project.Module + "/" + name
}

func (g *generation) newFile(pkg string) *jen.File {
	var f *jen.File
	if pkg == "main" {
		f = jen.NewFilePathName(g.project.Module, "main")
	} else {
		f = jen.NewFilePathName(g.pkgPath(pkg), pkg)
	}
	if g.opts.header != "" {
		f.HeaderComment(g.opts.header)
	}
	f.ImportName(fiberModule, "fiber")
	f.ImportName(g.pkgPath("models"), "models")
	f.ImportName(g.pkgPath("handlers"), "handlers")
	f.ImportName(g.pkgPath("database"), "database")
	f.ImportName(g.pkgPath("router"), "router")
	return f
}

// dbType is the handle the generated packages pass around.
func (g *generation) dbType() *jen.Statement {
	if g.mongo() {
		return jen.Op("*").Qual(mongoPkg, "Database")
	}
	return jen.Op("*").Qual(sqlPkg, "DB")
}

func render(f *jen.File, path string) ([]byte, error) {
	var buf bytes.Buffer
	if err := f.Render(&buf); err != nil {
		return nil, fmt.Errorf("codegen: render %s: %w", path, err)
	}
	return buf.Bytes(), nil
}

// rawString renders s as a raw string literal when it can be one.
func rawString(s string) jen.Code {
	if strings.Contains(s, "`") || strings.Contains(s, "\r") {
		return jen.Lit(s)
	}
	return jen.Id("`" + s + "`")
}

// route is the URL path segment of e's resource.
func route(e *ipm.Entity) string {
	return "/" + strings.ReplaceAll(e.Table, "_", "-")
}
