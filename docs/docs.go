// Package docs holds the Swagger description served at /swagger/.
// It is maintained by hand; do not regenerate it with swag init.
package docs

import "github.com/swaggo/swag"

const docTemplate = `{
    "schemes": {{ marshal .Schemes }},
    "swagger": "2.0",
    "info": {
        "description": "{{escape .Description}}",
        "title": "{{.Title}}",
        "contact": {},
        "version": "{{.Version}}"
    },
    "host": "{{.Host}}",
    "basePath": "{{.BasePath}}",
    "paths": {
        "/tournaments/{tournamentID}/bracket": {
            "get": {
                "description": "Возвращает план раундов и все комнаты. Пока регистрация открыта, план строится по оплаченным командам и может меняться.",
                "produces": ["application/json"],
                "tags": ["brackets"],
                "summary": "Получить сетку турнира",
                "parameters": [
                    {"type": "integer", "description": "Tournament ID", "name": "tournamentID", "in": "path", "required": true}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/services.BracketView"}},
                    "404": {"description": "Турнир не найден", "schema": {"type": "object", "additionalProperties": {"type": "string"}}}
                }
            }
        },
        "/tournaments/{tournamentID}/start": {
            "post": {
                "security": [{"BearerAuth": []}],
                "description": "Закрывает регистрацию, строит план по оплаченным командам и создаёт комнаты первого раунда.",
                "produces": ["application/json"],
                "tags": ["brackets"],
                "summary": "Запустить турнир",
                "parameters": [
                    {"type": "integer", "description": "Tournament ID", "name": "tournamentID", "in": "path", "required": true}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/services.BracketView"}},
                    "403": {"description": "Нет прав", "schema": {"type": "object", "additionalProperties": {"type": "string"}}},
                    "409": {"description": "Турнир уже запущен", "schema": {"type": "object", "additionalProperties": {"type": "string"}}},
                    "422": {"description": "Нет оплаченных команд", "schema": {"type": "object", "additionalProperties": {"type": "string"}}}
                }
            }
        },
        "/tournaments/{tournamentID}/status": {
            "patch": {
                "security": [{"BearerAuth": []}],
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["brackets"],
                "summary": "Изменить статус турнира",
                "parameters": [
                    {"type": "integer", "description": "Tournament ID", "name": "tournamentID", "in": "path", "required": true},
                    {"description": "Новый статус", "name": "body", "in": "body", "required": true, "schema": {"$ref": "#/definitions/handlers.UpdateStatusInput"}}
                ],
                "responses": {
                    "200": {"description": "Турнир обновлён", "schema": {"type": "object", "additionalProperties": true}},
                    "400": {"description": "Недопустимый переход", "schema": {"type": "object", "additionalProperties": {"type": "string"}}}
                }
            }
        },
        "/rooms/{roomID}/start": {
            "post": {
                "security": [{"BearerAuth": []}],
                "produces": ["application/json"],
                "tags": ["rooms"],
                "summary": "Начать игру в комнате",
                "parameters": [
                    {"type": "integer", "description": "Room ID", "name": "roomID", "in": "path", "required": true}
                ],
                "responses": {
                    "200": {"description": "Комната запущена", "schema": {"type": "object", "additionalProperties": true}},
                    "409": {"description": "Комната уже запущена или завершена", "schema": {"type": "object", "additionalProperties": {"type": "string"}}}
                }
            }
        },
        "/rooms/{roomID}/winner": {
            "post": {
                "security": [{"BearerAuth": []}],
                "description": "Победитель проходит дальше, остальные выбывают. Завершение последней комнаты раунда открывает следующий раунд.",
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["rooms"],
                "summary": "Объявить победителя комнаты",
                "parameters": [
                    {"type": "integer", "description": "Room ID", "name": "roomID", "in": "path", "required": true},
                    {"description": "Победитель и, опционально, полная расстановка", "name": "body", "in": "body", "required": true, "schema": {"$ref": "#/definitions/handlers.DeclareWinnerInput"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/services.RoomResult"}},
                    "409": {"description": "Победитель уже объявлен", "schema": {"type": "object", "additionalProperties": {"type": "string"}}},
                    "422": {"description": "Команда не из этой комнаты", "schema": {"type": "object", "additionalProperties": {"type": "string"}}}
                }
            }
        },
        "/wallet/withdrawable": {
            "get": {
                "security": [{"BearerAuth": []}],
                "description": "Сумма завершённых выигрышей и комиссий минус завершённые выводы, не меньше нуля. Пополнения не учитываются.",
                "produces": ["application/json"],
                "tags": ["wallet"],
                "summary": "Доступно к выводу",
                "responses": {
                    "200": {"description": "earnings, withdrawn, withdrawable", "schema": {"type": "object", "additionalProperties": true}}
                }
            }
        },
        "/wallet/breakdown": {
            "get": {
                "security": [{"BearerAuth": []}],
                "produces": ["application/json"],
                "tags": ["wallet"],
                "summary": "История заработка",
                "responses": {
                    "200": {"description": "breakdown", "schema": {"type": "object", "additionalProperties": true}}
                }
            }
        },
        "/admin/sweeps": {
            "post": {
                "security": [{"BearerAuth": []}],
                "description": "Отменяет турниры без победителя дольше льготного периода и оформляет возвраты. Повторный запуск безопасен.",
                "produces": ["application/json"],
                "tags": ["admin"],
                "summary": "Запустить проверку зависших турниров",
                "responses": {
                    "200": {"description": "cancelled", "schema": {"type": "object", "additionalProperties": true}},
                    "403": {"description": "Нет прав (не админ)", "schema": {"type": "object", "additionalProperties": {"type": "string"}}}
                }
            }
        },
        "/admin/tournaments/{tournamentID}/simulate": {
            "post": {
                "security": [{"BearerAuth": []}],
                "description": "Объявляет случайных победителей во всех открытых комнатах текущего раунда. Только при SIMULATION_ENABLED.",
                "produces": ["application/json"],
                "tags": ["admin"],
                "summary": "Сыграть текущий раунд случайно",
                "parameters": [
                    {"type": "integer", "description": "Tournament ID", "name": "tournamentID", "in": "path", "required": true}
                ],
                "responses": {
                    "200": {"description": "results", "schema": {"type": "object", "additionalProperties": true}},
                    "503": {"description": "Симуляция выключена", "schema": {"type": "object", "additionalProperties": {"type": "string"}}}
                }
            }
        }
    },
    "definitions": {
        "handlers.DeclareWinnerInput": {
            "type": "object",
            "properties": {
                "ranking": {"type": "array", "items": {"type": "integer"}},
                "winner_team_id": {"type": "integer"}
            }
        },
        "handlers.UpdateStatusInput": {
            "type": "object",
            "properties": {
                "status": {"type": "string"}
            }
        },
        "brackets.RoundShape": {
            "type": "object",
            "properties": {
                "is_finale": {"type": "boolean"},
                "round_number": {"type": "integer"},
                "rooms_in_round": {"type": "integer"},
                "teams_entering_round": {"type": "integer"}
            }
        },
        "brackets.Plan": {
            "type": "object",
            "properties": {
                "advances_per_room": {"type": "integer"},
                "room_capacity": {"type": "integer"},
                "rounds": {"type": "array", "items": {"$ref": "#/definitions/brackets.RoundShape"}},
                "total_teams": {"type": "integer"}
            }
        },
        "services.BracketView": {
            "type": "object",
            "properties": {
                "plan": {"$ref": "#/definitions/brackets.Plan"},
                "rooms": {"type": "array", "items": {"type": "object"}},
                "tournament": {"type": "object"}
            }
        },
        "services.RoomResult": {
            "type": "object",
            "properties": {
                "entered_finale": {"type": "boolean"},
                "next_round": {"type": "integer"},
                "next_rooms": {"type": "array", "items": {"type": "object"}},
                "outcome": {"type": "object"},
                "room": {"type": "object"},
                "round_completed": {"type": "boolean"},
                "tournament_finished": {"type": "boolean"}
            }
        }
    },
    "securityDefinitions": {
        "BearerAuth": {
            "type": "apiKey",
            "name": "Authorization",
            "in": "header"
        }
    }
}`

// SwaggerInfo holds exported Swagger Info so clients can modify it
var SwaggerInfo = &swag.Spec{
	Version:          "1.0",
	Host:             "",
	BasePath:         "/api/v1",
	Schemes:          []string{},
	Title:            "Room Bracket API",
	Description:      "Сетка турнира по комнатам: раунды, объявление победителей, автоотмена зависших турниров и баланс к выводу.",
	InfoInstanceName: "swagger",
	SwaggerTemplate:  docTemplate,
	LeftDelim:        "{{",
	RightDelim:       "}}",
}

func init() {
	swag.Register(SwaggerInfo.InstanceName(), SwaggerInfo)
}
