package repository

import (
	"regexp"
	"strings"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// exactInsensitive matches the whole value ignoring case.
func exactInsensitive(s string) primitive.Regex {
	return primitive.Regex{Pattern: "^" + regexp.QuoteMeta(s) + "$", Options: "i"}
}

func containsInsensitive(s string) primitive.Regex {
	return primitive.Regex{Pattern: regexp.QuoteMeta(s), Options: "i"}
}

// AuthorMatch matches every stored shape of an author reference to one user.
func AuthorMatch(id *primitive.ObjectID, usernames ...string) bson.A {
	var or bson.A
	if id != nil {
		or = append(or,
			bson.M{"author": *id},
			bson.M{"author": id.Hex()},
			bson.M{"author._id": *id},
			bson.M{"authorSnapshot._id": *id},
		)
	}
	for _, name := range usernames {
		name = strings.TrimPrefix(strings.TrimSpace(name), "@")
		if name == "" {
			continue
		}
		or = append(or, bson.M{"author": primitive.Regex{
			Pattern: "^@?" + regexp.QuoteMeta(name) + "$",
			Options: "i",
		}})
	}
	return or
}

// BuildFilter turns a Query into a Mongo filter.
func BuildFilter(q Query) bson.M {
	filter := bson.M{}
	var and bson.A

	if q.PublishedOnly {
		filter["published"] = true
	}
	if g := strings.TrimSpace(q.Genre); g != "" {
		filter["genres"] = exactInsensitive(g)
	}
	if q.MaxReadTime > 0 {
		filter["readTime"] = bson.M{"$lte": q.MaxReadTime}
	}
	if q.EditorPick {
		filter["editorPick"] = true
	}
	if c := strings.TrimSpace(q.Contest); c != "" {
		filter["contest"] = c
	}
	if len(q.IDs) > 0 {
		filter["_id"] = bson.M{"$in": q.IDs}
	}
	if q.AuthorID != nil || q.AuthorUsername != "" {
		and = append(and, bson.M{"$or": AuthorMatch(q.AuthorID, q.AuthorUsername)})
	}
	if s := strings.TrimSpace(q.Search); s != "" {
		re := containsInsensitive(s)
		and = append(and, bson.M{"$or": bson.A{
			bson.M{"title": re},
			bson.M{"description": re},
			bson.M{"tags": re},
		}})
	}

	if len(and) > 0 {
		filter["$and"] = and
	}
	return filter
}

func buildSort(order SortOrder) bson.D {
	if order == SortTrending {
		return bson.D{{Key: "likesCount", Value: -1}, {Key: "createdAt", Value: -1}}
	}
	return bson.D{{Key: "createdAt", Value: -1}}
}

// listProjection drops story bodies from listings.
var listProjection = bson.M{"content": 0, "contentCompressed": 0}
