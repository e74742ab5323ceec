package http

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/graphql-go/graphql"

	"github.com/samirrijal/routereplay/internal/core/domain"
)

func pointMap(p domain.GeoPoint) map[string]interface{} {
	return map[string]interface{}{"lat": p.Lat, "lng": p.Lng}
}

func sampleMap(s domain.Sample) map[string]interface{} {
	return map[string]interface{}{
		"lat":       s.Lat,
		"lng":       s.Lng,
		"timestamp": s.Timestamp.Format(time.RFC3339Nano),
	}
}

// buildSchema creates the GraphQL schema over the running replay.
func buildSchema(deps *Dependencies) (graphql.Schema, error) {
	geoPointType := graphql.NewObject(graphql.ObjectConfig{
		Name: "GeoPoint",
		Fields: graphql.Fields{
			"lat": &graphql.Field{Type: graphql.Float},
			"lng": &graphql.Field{Type: graphql.Float},
		},
	})

	sampleType := graphql.NewObject(graphql.ObjectConfig{
		Name: "Sample",
		Fields: graphql.Fields{
			"lat":       &graphql.Field{Type: graphql.Float},
			"lng":       &graphql.Field{Type: graphql.Float},
			"timestamp": &graphql.Field{Type: graphql.String},
		},
	})

	statusType := graphql.NewObject(graphql.ObjectConfig{
		Name: "ReplayStatus",
		Fields: graphql.Fields{
			"currentIndex": &graphql.Field{Type: graphql.Int},
			"isPlaying":    &graphql.Field{Type: graphql.Boolean},
			"total":        &graphql.Field{Type: graphql.Int},
			"current":      &graphql.Field{Type: sampleType},
			"speedKmh":     &graphql.Field{Type: graphql.Float},
			"marker":       &graphql.Field{Type: geoPointType},
			"rotation":     &graphql.Field{Type: graphql.Float},
			"following":    &graphql.Field{Type: graphql.Boolean},
			"line":         &graphql.Field{Type: graphql.String},
		},
	})

	coordList := graphql.NewList(graphql.NewList(graphql.Float))
	routeType := graphql.NewObject(graphql.ObjectConfig{
		Name: "Route",
		Fields: graphql.Fields{
			"total":    &graphql.Field{Type: graphql.Int},
			"full":     &graphql.Field{Type: coordList},
			"traveled": &graphql.Field{Type: coordList},
			"samples": &graphql.Field{
				Type: graphql.NewList(sampleType),
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					route := deps.Replay.Route()
					out := make([]map[string]interface{}, len(route))
					for i, s := range route {
						out[i] = sampleMap(s)
					}
					return out, nil
				},
			},
		},
	})

	queryType := graphql.NewObject(graphql.ObjectConfig{
		Name: "Query",
		Fields: graphql.Fields{
			"status": &graphql.Field{
				Type:        statusType,
				Description: "Current playback state of the replay",
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					st := deps.Replay.Status()
					out := map[string]interface{}{
						"currentIndex": st.CurrentIndex,
						"isPlaying":    st.IsPlaying,
						"total":        st.Total,
						"speedKmh":     st.SpeedKmH,
						"marker":       pointMap(st.Marker),
						"rotation":     st.Rotation,
						"following":    st.Following,
						"line":         st.Line(time.Local),
					}
					if st.Current != nil {
						out["current"] = sampleMap(*st.Current)
					}
					return out, nil
				},
			},
			"route": &graphql.Field{
				Type:        routeType,
				Description: "Full and traveled polylines of the loaded route",
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					full, traveled := deps.Replay.Coordinates()
					return map[string]interface{}{
						"total":    len(full),
						"full":     full,
						"traveled": traveled,
					}, nil
				},
			},
		},
	})

	return graphql.NewSchema(graphql.SchemaConfig{
		Query: queryType,
	})
}

// GraphQLHandler serves the GraphQL endpoint.
func GraphQLHandler(deps *Dependencies) fiber.Handler {
	schema, err := buildSchema(deps)
	if err != nil {
		panic("graphql schema build: " + err.Error())
	}

	type gqlRequest struct {
		Query         string                 `json:"query"`
		OperationName string                 `json:"operationName"`
		Variables     map[string]interface{} `json:"variables"`
	}

	return func(c *fiber.Ctx) error {
		var req gqlRequest
		if err := c.BodyParser(&req); err != nil {
			return errBadRequest(c, "invalid request body")
		}

		result := graphql.Do(graphql.Params{
			Schema:         schema,
			RequestString:  req.Query,
			VariableValues: req.Variables,
			OperationName:  req.OperationName,
			Context:        c.UserContext(),
		})

		return c.JSON(result)
	}
}
