package model

// RoleAdmin is the role given to the seeded administrator account.
const RoleAdmin = "admin"
