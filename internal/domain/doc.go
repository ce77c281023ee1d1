// Package domain defines the records kept in the fieldsync collection store.
//
// This package contains type definitions and small pure helpers only. All other
// internal packages import domain; domain imports nothing internal.
//
// Key conventions:
//   - JSON tags use camelCase, matching the records already held by the store
//   - Date-only fields are "YYYY-MM-DD" and are compared with Day, never as instants
//   - Name joins go through SameName so that case and Unicode form do not matter
package domain
