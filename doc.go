// Package medconnect is the backend of a marketplace where sellers and NGOs
// list surplus medicines, pharmacists verify them and buyers order them.
/*
medconnect-backend/
├── cmd/
│   └── server/
│       └── main.go
├── internal/
│   ├── config/
│   ├── database/          connection, migrations, seed data
│   ├── events/            order event publishers (log, kafka)
│   ├── handlers/          gin handlers
│   ├── i18n/              embedded locales (en, hi)
│   ├── middleware/        auth, cors, i18n, logging, rate limiting
│   ├── models/
│   ├── repository/
│   │   ├── memory/
│   │   └── postgres/
│   ├── router/
│   ├── services/          catalog, orders, access policy, accounts, uploads
│   └── utils/             jwt, pagination, responses, validation
└── go.mod
*/
package medconnect
