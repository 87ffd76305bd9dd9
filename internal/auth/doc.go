// Package auth issues and verifies the bearer tokens staff present to the API.
//
// There is no user database in the core: tokens are minted by an operator
// (stayflow token ...) or an upstream identity service sharing the signing
// secret. A token names the staff member, their role and the properties
// they may act on.
//
// Roles map statically to permissions:
//
//	front_desk   stays, cabins, messages
//	housekeeper  start and finish cleaning tasks
//	manager      everything, including conference and automation rules
package auth
