package codegen

import (
	"fmt"
	"strings"

	"github.com/dave/jennifer/jen"
	"github.com/olimci/fiberforge/pkg/schema"
)

func (g *generation) handlerFile(m *model) *jen.File {
	e := m.entity
	name := e.Name.Pascal
	handler := name + "Handler"
	f := g.newFile("handlers")

	if g.sql() {
		g.queries(f, m)
	}

	f.Commentf("%s serves the %s resource.", handler, route(e))
	f.Type().Id(handler).StructFunc(func(grp *jen.Group) {
		if g.mongo() {
			grp.Id("Collection").Op("*").Qual(mongoPkg, "Collection")
		} else {
			grp.Id("DB").Op("*").Qual(sqlPkg, "DB")
		}
	})
	f.Line()

	var store jen.Dict
	if g.mongo() {
		store = jen.Dict{jen.Id("Collection"): jen.Id("db").Dot("Collection").Call(jen.Qual(g.pkgPath("models"), name+"Table"))}
	} else {
		store = jen.Dict{jen.Id("DB"): jen.Id("db")}
	}

	f.Commentf("Register%sRoutes mounts the %s handlers on router.", name, name)
	f.Func().Id("Register"+name+"Routes").Params(
		jen.Id("router").Qual(fiberModule, "Router"),
		jen.Id("db").Add(g.dbType()),
	).Block(
		jen.Id("h").Op(":=").Op("&").Id(handler).Values(store),
		jen.Id("g").Op(":=").Id("router").Dot("Group").Call(jen.Lit(route(e))),
		jen.Id("g").Dot("Post").Call(jen.Lit("/"), jen.Id("h").Dot("Create")),
		jen.Id("g").Dot("Get").Call(jen.Lit("/"), jen.Id("h").Dot("List")),
		jen.Id("g").Dot("Get").Call(jen.Lit("/:id"), jen.Id("h").Dot("Get")),
		jen.Id("g").Dot("Put").Call(jen.Lit("/:id"), jen.Id("h").Dot("Update")),
		jen.Id("g").Dot("Delete").Call(jen.Lit("/:id"), jen.Id("h").Dot("Delete")),
	)

	methods := []struct {
		name, doc string
		body      func(m *model) []jen.Code
	}{
		{"Create", "Create inserts the %s in the request body.", g.createBody},
		{"Get", "Get returns the %s with the id in the path.", g.getBody},
		{"List", "List returns every %s.", g.listBody},
		{"Update", "Update replaces the %s with the id in the path.", g.updateBody},
		{"Delete", "Delete removes the %s with the id in the path.", g.deleteBody},
	}
	for _, method := range methods {
		f.Line()
		f.Commentf(method.doc, name)
		f.Func().Params(jen.Id("h").Op("*").Id(handler)).Id(method.name).
			Params(jen.Id("c").Op("*").Qual(fiberModule, "Ctx")).Error().
			Block(method.body(m)...)
	}

	return f
}

// queries declares the SQL statements of m's handlers.
func (g *generation) queries(f *jen.File, m *model) {
	e := m.entity
	name := e.Name.Pascal

	cols := make([]string, len(m.columns))
	for i, c := range m.columns {
		cols[i] = c.name
	}
	n := len(cols)

	placeholder := func(i int) string {
		if g.project.Database == schema.Postgres {
			return fmt.Sprintf("$%d", i)
		}
		return "?"
	}

	values := make([]string, n)
	sets := make([]string, n)
	for i, c := range cols {
		values[i] = placeholder(i + 1)
		sets[i] = c + " = " + placeholder(i+1)
	}

	insert := fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)", e.Table, strings.Join(cols, ", "), strings.Join(values, ", "))
	if g.project.Database == schema.Postgres {
		insert += " RETURNING id"
	}
	list := fmt.Sprintf("SELECT id, %s FROM %s ORDER BY id", strings.Join(cols, ", "), e.Table)
	get := fmt.Sprintf("SELECT id, %s FROM %s WHERE id = %s", strings.Join(cols, ", "), e.Table, placeholder(1))
	update := fmt.Sprintf("UPDATE %s SET %s WHERE id = %s", e.Table, strings.Join(sets, ", "), placeholder(n+1))
	del := fmt.Sprintf("DELETE FROM %s WHERE id = %s", e.Table, placeholder(1))

	f.Const().Defs(
		jen.Id("insert"+name).Op("=").Lit(insert),
		jen.Id("list"+name).Op("=").Lit(list),
		jen.Id("get"+name).Op("=").Lit(get),
		jen.Id("update"+name).Op("=").Lit(update),
		jen.Id("delete"+name).Op("=").Lit(del),
	)
	f.Line()
}

func ctx() *jen.Statement {
	return jen.Id("c").Dot("UserContext").Call()
}

func returnErr() jen.Code {
	return jen.If(jen.Err().Op("!=").Nil()).Block(jen.Return(jen.Err()))
}

func (g *generation) parseBody(m *model) []jen.Code {
	return []jen.Code{
		jen.Id("m").Op(":=").Qual(g.pkgPath("models"), "New"+m.entity.Name.Pascal).Call(),
		jen.If(jen.Err().Op(":=").Id("c").Dot("BodyParser").Call(jen.Id("m")), jen.Err().Op("!=").Nil()).Block(
			jen.Return(jen.Qual(fiberModule, "NewError").Call(jen.Qual(fiberModule, "StatusBadRequest"), jen.Err().Dot("Error").Call())),
		),
	}
}

func (g *generation) parseID() []jen.Code {
	var parse jen.Code
	if g.mongo() {
		parse = jen.List(jen.Id("id"), jen.Err()).Op(":=").Qual(primitivePkg, "ObjectIDFromHex").Call(jen.Id("c").Dot("Params").Call(jen.Lit("id")))
	} else {
		parse = jen.List(jen.Id("id"), jen.Err()).Op(":=").Id("c").Dot("ParamsInt").Call(jen.Lit("id"))
	}
	return []jen.Code{
		parse,
		jen.If(jen.Err().Op("!=").Nil()).Block(
			jen.Return(jen.Qual(fiberModule, "NewError").Call(jen.Qual(fiberModule, "StatusBadRequest"), jen.Lit("invalid id"))),
		),
	}
}

func byID() jen.Code {
	return jen.Qual(bsonPkg, "M").Values(jen.Dict{jen.Lit("_id"): jen.Id("id")})
}

func notFoundIf(cond jen.Code) jen.Code {
	return jen.If(cond).Block(jen.Return(jen.Qual(fiberModule, "ErrNotFound")))
}

func (g *generation) createBody(m *model) []jen.Code {
	name := m.entity.Name.Pascal
	body := g.parseBody(m)

	switch g.project.Database {
	case schema.MongoDB:
		body = append(body,
			jen.Id("m").Dot("ID").Op("=").Qual(primitivePkg, "NewObjectID").Call(),
			jen.If(
				jen.List(jen.Id("_"), jen.Err()).Op(":=").Id("h").Dot("Collection").Dot("InsertOne").Call(ctx(), jen.Id("m")),
				jen.Err().Op("!=").Nil(),
			).Block(jen.Return(jen.Err())),
		)
	case schema.Postgres:
		body = append(body,
			jen.If(
				jen.Err().Op(":=").Id("h").Dot("DB").Dot("QueryRowContext").
					Call(ctx(), jen.Id("insert"+name), jen.Id("m").Dot("Values").Call().Op("...")).
					Dot("Scan").Call(jen.Op("&").Id("m").Dot("ID")),
				jen.Err().Op("!=").Nil(),
			).Block(jen.Return(jen.Err())),
		)
	default:
		body = append(body,
			jen.List(jen.Id("res"), jen.Err()).Op(":=").Id("h").Dot("DB").Dot("ExecContext").
				Call(ctx(), jen.Id("insert"+name), jen.Id("m").Dot("Values").Call().Op("...")),
			returnErr(),
			jen.List(jen.Id("id"), jen.Err()).Op(":=").Id("res").Dot("LastInsertId").Call(),
			returnErr(),
			jen.Id("m").Dot("ID").Op("=").Id("id"),
		)
	}

	return append(body,
		jen.Return(jen.Id("c").Dot("Status").Call(jen.Qual(fiberModule, "StatusCreated")).Dot("JSON").Call(jen.Id("m"))),
	)
}

func (g *generation) getBody(m *model) []jen.Code {
	model := jen.Qual(g.pkgPath("models"), m.entity.Name.Pascal)
	body := g.parseID()
	body = append(body, jen.Id("m").Op(":=").New(model))

	if g.mongo() {
		body = append(body,
			jen.Err().Op("=").Id("h").Dot("Collection").Dot("FindOne").Call(ctx(), byID()).Dot("Decode").Call(jen.Id("m")),
			notFoundIf(jen.Qual("errors", "Is").Call(jen.Err(), jen.Qual(mongoPkg, "ErrNoDocuments"))),
		)
	} else {
		body = append(body,
			jen.Err().Op("=").Id("h").Dot("DB").Dot("QueryRowContext").
				Call(ctx(), jen.Id("get"+m.entity.Name.Pascal), jen.Id("id")).
				Dot("Scan").Call(jen.Id("m").Dot("Pointers").Call().Op("...")),
			notFoundIf(jen.Qual("errors", "Is").Call(jen.Err(), jen.Qual(sqlPkg, "ErrNoRows"))),
		)
	}

	return append(body,
		returnErr(),
		jen.Return(jen.Id("c").Dot("JSON").Call(jen.Id("m"))),
	)
}

func (g *generation) listBody(m *model) []jen.Code {
	model := jen.Qual(g.pkgPath("models"), m.entity.Name.Pascal)

	if g.mongo() {
		return []jen.Code{
			jen.List(jen.Id("cur"), jen.Err()).Op(":=").Id("h").Dot("Collection").Dot("Find").Call(ctx(), jen.Qual(bsonPkg, "M").Values()),
			returnErr(),
			jen.Id("out").Op(":=").Make(jen.Index().Op("*").Add(model), jen.Lit(0)),
			jen.If(jen.Err().Op(":=").Id("cur").Dot("All").Call(ctx(), jen.Op("&").Id("out")), jen.Err().Op("!=").Nil()).Block(
				jen.Return(jen.Err()),
			),
			jen.Return(jen.Id("c").Dot("JSON").Call(jen.Id("out"))),
		}
	}

	return []jen.Code{
		jen.List(jen.Id("rows"), jen.Err()).Op(":=").Id("h").Dot("DB").Dot("QueryContext").Call(ctx(), jen.Id("list"+m.entity.Name.Pascal)),
		returnErr(),
		jen.Defer().Id("rows").Dot("Close").Call(),
		jen.Line(),
		jen.Id("out").Op(":=").Make(jen.Index().Op("*").Add(model), jen.Lit(0)),
		jen.For(jen.Id("rows").Dot("Next").Call()).Block(
			jen.Id("m").Op(":=").New(model),
			jen.If(jen.Err().Op(":=").Id("rows").Dot("Scan").Call(jen.Id("m").Dot("Pointers").Call().Op("...")), jen.Err().Op("!=").Nil()).Block(
				jen.Return(jen.Err()),
			),
			jen.Id("out").Op("=").Append(jen.Id("out"), jen.Id("m")),
		),
		jen.If(jen.Err().Op(":=").Id("rows").Dot("Err").Call(), jen.Err().Op("!=").Nil()).Block(
			jen.Return(jen.Err()),
		),
		jen.Return(jen.Id("c").Dot("JSON").Call(jen.Id("out"))),
	}
}

func (g *generation) updateBody(m *model) []jen.Code {
	body := g.parseID()
	body = append(body, g.parseBody(m)...)

	if g.mongo() {
		body = append(body,
			jen.Id("m").Dot("ID").Op("=").Id("id"),
			jen.List(jen.Id("res"), jen.Err()).Op(":=").Id("h").Dot("Collection").Dot("ReplaceOne").Call(ctx(), byID(), jen.Id("m")),
			returnErr(),
			notFoundIf(jen.Id("res").Dot("MatchedCount").Op("==").Lit(0)),
		)
	} else {
		body = append(body,
			jen.Id("m").Dot("ID").Op("=").Int64().Call(jen.Id("id")),
			jen.List(jen.Id("res"), jen.Err()).Op(":=").Id("h").Dot("DB").Dot("ExecContext").Call(
				ctx(),
				jen.Id("update"+m.entity.Name.Pascal),
				jen.Append(jen.Id("m").Dot("Values").Call(), jen.Id("m").Dot("ID")).Op("..."),
			),
			returnErr(),
			jen.List(jen.Id("n"), jen.Err()).Op(":=").Id("res").Dot("RowsAffected").Call(),
			returnErr(),
			notFoundIf(jen.Id("n").Op("==").Lit(0)),
		)
	}

	return append(body, jen.Return(jen.Id("c").Dot("JSON").Call(jen.Id("m"))))
}

func (g *generation) deleteBody(m *model) []jen.Code {
	body := g.parseID()

	if g.mongo() {
		body = append(body,
			jen.List(jen.Id("res"), jen.Err()).Op(":=").Id("h").Dot("Collection").Dot("DeleteOne").Call(ctx(), byID()),
			returnErr(),
			notFoundIf(jen.Id("res").Dot("DeletedCount").Op("==").Lit(0)),
		)
	} else {
		body = append(body,
			jen.List(jen.Id("res"), jen.Err()).Op(":=").Id("h").Dot("DB").Dot("ExecContext").Call(ctx(), jen.Id("delete"+m.entity.Name.Pascal), jen.Id("id")),
			returnErr(),
			jen.List(jen.Id("n"), jen.Err()).Op(":=").Id("res").Dot("RowsAffected").Call(),
			returnErr(),
			notFoundIf(jen.Id("n").Op("==").Lit(0)),
		)
	}

	return append(body, jen.Return(jen.Id("c").Dot("SendStatus").Call(jen.Qual(fiberModule, "StatusNoContent"))))
}
