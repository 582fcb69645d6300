package handlers

import "net/http"

// apiDoc is the Swagger document served to the UI at /swagger/*. It is kept
// by hand; regenerate the paths block when the route table changes.
const apiDoc = `{
  "swagger": "2.0",
  "info": {
    "title": "Tourney Fixture Engine API",
    "description": "Fixture generation, match scoring and bracket progression for tournament events.",
    "version": "1.0"
  },
  "basePath": "/api",
  "paths": {
    "/tournaments/{tournamentID}/fixtures": {
      "get": {
        "summary": "List fixtures ordered by round and match index",
        "parameters": [
          {"name": "tournamentID", "in": "path", "required": true, "type": "integer"},
          {"name": "event_id", "in": "query", "type": "integer"}
        ],
        "responses": {"200": {"description": "fixtures plus event participants"}}
      }
    },
    "/tournaments/{tournamentID}/fixtures/{fixtureID}": {
      "get": {
        "summary": "Get one fixture with its display round name",
        "responses": {"200": {"description": "fixture"}, "404": {"description": "not found"}}
      },
      "put": {
        "summary": "Update a fixture (scores, sets, winner, schedule metadata)",
        "responses": {"200": {"description": "updated fixture"}, "409": {"description": "completed fixture requires reset"}}
      }
    },
    "/tournaments/{tournamentID}/fixtures/generate": {
      "post": {
        "summary": "Regenerate the event's fixture set",
        "responses": {"201": {"description": "generated fixtures"}, "422": {"description": "not enough participants"}}
      }
    },
    "/tournaments/{tournamentID}/fixtures/create": {
      "post": {
        "summary": "Create a single fixture manually",
        "responses": {"201": {"description": "created fixture"}, "409": {"description": "slot occupied"}}
      }
    },
    "/tournaments/{tournamentID}/fixtures/{fixtureID}/point": {
      "post": {
        "summary": "Apply a single point delta to the current set",
        "responses": {"200": {"description": "updated fixture"}, "409": {"description": "fixture completed or cancelled"}}
      }
    },
    "/tournaments/{tournamentID}/fixtures/{fixtureID}/reset": {
      "post": {
        "summary": "Reset a fixture and withdraw its propagated winner",
        "responses": {"200": {"description": "reset fixture"}}
      }
    },
    "/tournaments/{tournamentID}/fixtures/standings": {
      "get": {
        "summary": "Round-robin table derived from scored fixtures",
        "responses": {"200": {"description": "standings rows"}}
      }
    },
    "/tournaments/{tournamentID}/fixtures/promote": {
      "post": {
        "summary": "Seed the knockout phase from current standings",
        "responses": {"201": {"description": "knockout fixtures"}, "422": {"description": "event is not hybrid"}}
      }
    },
    "/tournaments/{tournamentID}/fixtures/export": {
      "post": {
        "summary": "Publish a JSON snapshot of fixtures and standings",
        "responses": {"201": {"description": "snapshot location"}, "503": {"description": "export not configured"}}
      }
    },
    "/tournaments/{tournamentID}/fixtures/teams": {
      "get": {
        "summary": "List the event's participants",
        "responses": {"200": {"description": "participants"}}
      }
    },
    "/tournaments/{tournamentID}/entries/{kind}/{entryID}": {
      "delete": {
        "summary": "Delete an entry and cascade its fixtures",
        "responses": {"200": {"description": "entry deleted with fixture count"}}
      }
    }
  }
}`

func ServeAPIDoc(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.Write([]byte(apiDoc))
}
