// Package openapi describes the registered /api routes as an OpenAPI 3.0
// document. Paths come from the live router so the document cannot drift from
// what the server actually serves.
package openapi

import (
	"net/http"
	"sort"
	"strings"

	"github.com/labstack/echo/v4"
)

// RouteLister is satisfied by *echo.Echo.
type RouteLister interface {
	Routes() []*echo.Route
}

// Generator builds the document from a route table.
type Generator struct {
	routes  RouteLister
	prefix  string
	version string
}

// NewGenerator describes the routes of r that start with prefix.
func NewGenerator(r RouteLister, prefix, version string) *Generator {
	return &Generator{routes: r, prefix: prefix, version: version}
}

// resource maps the first path segment after the prefix to its schemas.
type resource struct {
	tag    string
	schema string
	input  string
	query  []param
	single bool // the collection path returns one object
}

type param struct {
	name   string
	schema map[string]interface{}
	desc   string
}

var (
	stringSchema = map[string]interface{}{"type": "string"}
	uuidSchema   = map[string]interface{}{"type": "string", "format": "uuid"}
	dateSchema   = map[string]interface{}{"type": "string", "format": "date"}
	pageParams   = []param{
		{"limit", map[string]interface{}{"type": "integer", "minimum": 1}, "Nombre maximal d'éléments"},
		{"offset", map[string]interface{}{"type": "integer", "minimum": 0}, "Index du premier élément"},
	}
)

var resources = map[string]resource{
	"patients": {
		tag: "Patients", schema: "Patient", input: "PatientInput",
		query: append([]param{
			{"q", stringSchema, "Recherche sur nom, prénom ou matricule"},
			{"medecin", uuidSchema, "Médecin traitant"},
		}, pageParams...),
	},
	"rendezvous": {
		tag: "Rendez-vous", schema: "RendezVous", input: "RendezVousInput",
		query: append([]param{
			{"statut", map[string]interface{}{"type": "string", "enum": statuses}, "Statut"},
			{"date", dateSchema, "Date du rendez-vous"},
			{"medecin", uuidSchema, "Médecin"},
			{"patient", uuidSchema, "Patient"},
		}, pageParams...),
	},
	"medecins": {tag: "Personnel", schema: "Medecin"},
	"me":       {tag: "Personnel", schema: "Me", single: true},
}

var statuses = []string{"planifie", "annule", "termine"}

var documented = map[string]bool{
	http.MethodGet:    true,
	http.MethodPost:   true,
	http.MethodPut:    true,
	http.MethodPatch:  true,
	http.MethodDelete: true,
}

// GenerateSpec produces the OpenAPI document as a map.
func (g *Generator) GenerateSpec() map[string]interface{} {
	paths := make(map[string]map[string]interface{})
	for _, r := range g.routes.Routes() {
		if !strings.HasPrefix(r.Path, g.prefix+"/") || strings.HasSuffix(r.Path, "*") {
			continue
		}
		// Group.Use registers not-found catch-alls under a pseudo method.
		if !documented[r.Method] {
			continue
		}
		rel := strings.TrimPrefix(r.Path, g.prefix)
		segments := strings.Split(strings.Trim(rel, "/"), "/")
		res, ok := resources[segments[0]]
		if !ok {
			continue
		}
		path := toTemplate(r.Path)
		if paths[path] == nil {
			paths[path] = make(map[string]interface{})
		}
		paths[path][strings.ToLower(r.Method)] = g.operation(r.Method, segments, res)
	}

	return map[string]interface{}{
		"openapi": "3.0.3",
		"info": map[string]interface{}{
			"title":       "Clinique API",
			"version":     g.version,
			"description": "Gestion des patients et des rendez-vous",
		},
		"paths": paths,
		"components": map[string]interface{}{
			"schemas": componentSchemas(),
			"securitySchemes": map[string]interface{}{
				"bearerAuth": map[string]interface{}{"type": "http", "scheme": "bearer", "bearerFormat": "JWT"},
			},
		},
		"security": []map[string][]string{{"bearerAuth": {}}},
	}
}

func (g *Generator) operation(method string, segments []string, res resource) map[string]interface{} {
	byID := res.single || len(segments) > 1 && strings.HasPrefix(segments[1], ":")
	statusRoute := segments[len(segments)-1] == "statut" || (method == http.MethodPatch && !byID && res.input != "")

	op := map[string]interface{}{
		"tags":        []string{res.tag},
		"operationId": operationID(method, segments, byID, statusRoute),
	}

	var params []map[string]interface{}
	for _, s := range segments[1:] {
		if strings.HasPrefix(s, ":") {
			params = append(params, map[string]interface{}{
				"name": strings.TrimPrefix(s, ":"), "in": "path", "required": true, "schema": uuidSchema,
			})
		}
	}
	if method == http.MethodGet && !byID {
		for _, q := range res.query {
			params = append(params, map[string]interface{}{
				"name": q.name, "in": "query", "schema": q.schema, "description": q.desc,
			})
		}
	}
	if len(params) > 0 {
		op["parameters"] = params
	}

	responses := map[string]interface{}{
		"401": errorResponse("Authentification requise"),
		"403": errorResponse("Permission refusée"),
	}
	switch {
	case statusRoute:
		op["requestBody"] = jsonBody("StatutInput")
		responses["200"] = jsonResponse("Statut mis à jour", ref(res.schema))
		responses["400"] = errorResponse("Données invalides")
		responses["404"] = errorResponse("Introuvable")
	case method == http.MethodGet && !byID:
		responses["200"] = jsonResponse("Liste", map[string]interface{}{"type": "array", "items": ref(res.schema)})
		if len(res.query) > 0 {
			responses["400"] = errorResponse("Filtre invalide")
		}
	case method == http.MethodGet:
		responses["200"] = jsonResponse("Détail", ref(res.schema))
		responses["404"] = errorResponse("Introuvable")
	case method == http.MethodPost:
		op["requestBody"] = jsonBody(res.input)
		responses["201"] = jsonResponse("Créé", ref(res.schema))
		responses["400"] = errorResponse("Données invalides")
		responses["409"] = errorResponse("Conflit")
	case method == http.MethodPut || method == http.MethodPatch:
		op["requestBody"] = jsonBody(res.input)
		responses["200"] = jsonResponse("Modifié", ref(res.schema))
		responses["400"] = errorResponse("Données invalides")
		responses["404"] = errorResponse("Introuvable")
		responses["409"] = errorResponse("Conflit")
	case method == http.MethodDelete:
		responses["204"] = map[string]interface{}{"description": "Supprimé"}
		responses["404"] = errorResponse("Introuvable")
	}
	op["responses"] = responses
	return op
}

// toTemplate rewrites echo's :param segments as OpenAPI {param}.
func toTemplate(path string) string {
	parts := strings.Split(path, "/")
	for i, p := range parts {
		if strings.HasPrefix(p, ":") {
			parts[i] = "{" + p[1:] + "}"
		}
	}
	return strings.Join(parts, "/")
}

func operationID(method string, segments []string, byID, statusRoute bool) string {
	verb := map[string]string{
		http.MethodGet:    "get",
		http.MethodPost:   "create",
		http.MethodPut:    "update",
		http.MethodPatch:  "patch",
		http.MethodDelete: "delete",
	}[method]
	if method == http.MethodGet && !byID {
		verb = "list"
	}
	if statusRoute {
		verb = "updateStatus"
	}
	id := verb + strings.ToUpper(segments[0][:1]) + segments[0][1:]
	if len(segments) > 1 && strings.HasPrefix(segments[1], ":") {
		id += "ById"
	}
	return id
}

func ref(name string) map[string]interface{} {
	return map[string]interface{}{"$ref": "#/components/schemas/" + name}
}

func jsonBody(schema string) map[string]interface{} {
	return map[string]interface{}{
		"required": true,
		"content":  map[string]interface{}{"application/json": map[string]interface{}{"schema": ref(schema)}},
	}
}

func jsonResponse(description string, schema map[string]interface{}) map[string]interface{} {
	return map[string]interface{}{
		"description": description,
		"content":     map[string]interface{}{"application/json": map[string]interface{}{"schema": schema}},
	}
}

func errorResponse(description string) map[string]interface{} {
	return jsonResponse(description, ref("Error"))
}

func object(required []string, props map[string]interface{}) map[string]interface{} {
	s := map[string]interface{}{"type": "object", "properties": props}
	if len(required) > 0 {
		sort.Strings(required)
		s["required"] = required
	}
	return s
}

func maxLen(n int) map[string]interface{} {
	return map[string]interface{}{"type": "string", "maxLength": n}
}

func nullableUUID() map[string]interface{} {
	return map[string]interface{}{"type": "string", "format": "uuid", "nullable": true}
}

func componentSchemas() map[string]interface{} {
	timestamp := map[string]interface{}{"type": "string", "format": "date-time"}
	heure := map[string]interface{}{"type": "string", "pattern": `^\d{2}:\d{2}(:\d{2})?$`}
	statut := map[string]interface{}{"type": "string", "enum": statuses}
	roles := map[string]interface{}{
		"type":  "array",
		"items": map[string]interface{}{"type": "string", "enum": []string{"Administrateur", "Medecin", "Secretaire", "Utilisateur"}},
	}

	return map[string]interface{}{
		"Patient": object(nil, map[string]interface{}{
			"id": uuidSchema, "matricule": stringSchema, "nom": stringSchema, "prenom": stringSchema,
			"telephone": stringSchema, "email": stringSchema, "medecin": nullableUUID(), "created_at": timestamp,
		}),
		"PatientInput": object([]string{"matricule", "nom", "prenom"}, map[string]interface{}{
			"matricule": maxLen(20), "nom": maxLen(100), "prenom": maxLen(100),
			"telephone": maxLen(20), "email": map[string]interface{}{"type": "string", "format": "email", "maxLength": 254},
			"medecin": nullableUUID(),
		}),
		"RendezVous": object(nil, map[string]interface{}{
			"id": uuidSchema, "patient": uuidSchema, "medecin": uuidSchema, "date": dateSchema,
			"heure": heure, "statut": statut, "created_at": timestamp,
		}),
		"RendezVousInput": object([]string{"patient", "medecin", "date", "heure"}, map[string]interface{}{
			"patient": uuidSchema, "medecin": uuidSchema, "date": dateSchema, "heure": heure, "statut": statut,
		}),
		"StatutInput": object([]string{"statut"}, map[string]interface{}{
			"id": uuidSchema, "statut": statut,
		}),
		"Medecin": object(nil, map[string]interface{}{
			"id": uuidSchema, "username": stringSchema, "prenom": stringSchema, "nom": stringSchema, "email": stringSchema,
		}),
		"Me": object(nil, map[string]interface{}{
			"id": uuidSchema, "username": stringSchema, "email": stringSchema, "roles": roles,
		}),
		"Error": object([]string{"detail", "code"}, map[string]interface{}{
			"detail": stringSchema,
			"code":   stringSchema,
			"errors": map[string]interface{}{"type": "object", "additionalProperties": stringSchema},
		}),
	}
}

// Handler serves the document as JSON. It is rebuilt per request so routes
// registered after the handler are included.
func (g *Generator) Handler() echo.HandlerFunc {
	return func(c echo.Context) error {
		return c.JSON(http.StatusOK, g.GenerateSpec())
	}
}
