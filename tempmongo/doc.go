// Package tempmongo starts disposable MongoDB servers for tests.
//
// Each Instance runs its own mongod process with all state kept in a fresh
// temporary directory. On Unix-like systems the server listens on a Unix
// socket inside that directory; elsewhere it listens on a free loopback port.
// Closing the instance stops the server and removes the directory unless
// Disown was called.
//
//	func TestSomething(t *testing.T) {
//		tempmongo.RequireMongod(t, "")
//		mongo := tempmongo.StartT(t, nil)
//
//		coll := mongo.Client().Database("test").Collection("animals")
//		_, err := coll.InsertOne(context.Background(), bson.D{{Key: "species", Value: "dog"}})
//		...
//	}
package tempmongo
