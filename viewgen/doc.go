// Package viewgen turns the Hive type of a DynamoDB change record into the
// catalog columns of the raw table and the Athena view that flattens it.
//
// A Visitor projects the record into a tree of Scopes, one per array. The
// same projection is rendered twice: in catalog syntax (FlavorDDL) for the
// table storage descriptor and in query syntax (FlavorDQL) for the view.
package viewgen
